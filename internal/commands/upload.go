package commands

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/spf13/cobra"
)

var (
	flagUploadGroups []string
	flagWorkers      int
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file or directory",
	Long: `Upload a local file, or every file below a directory.

  filez upload report.pdf                        Upload a single file
  filez upload report.pdf --group <group-id>     Upload into a static group
  filez upload ./photos --group <group-id> -w 8  Upload a directory with 8 workers`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringSliceVar(&flagUploadGroups, "group", nil, "Static group id to add the files to (repeatable)")
	uploadCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 4, "Number of concurrent upload workers (for directories)")
	rootCmd.AddCommand(uploadCmd)
}

// uploadResult is the JSON form of one uploaded file.
type uploadResult struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireAuth(ctx); err != nil {
		return err
	}

	localPath := args[0]
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	if !info.IsDir() {
		res := uploadFile(ctx, localPath, flagUploadGroups)
		if res.Error != "" {
			return fmt.Errorf("uploading %s: %s", res.Name, res.Error)
		}
		if flagJSON {
			output.JSON([]uploadResult{res})
			return nil
		}
		output.Printf("Uploaded %s (%s)\n", res.Name, output.FormatSize(res.Size))
		return nil
	}

	return uploadDirectory(ctx, localPath, flagUploadGroups)
}

func uploadDirectory(ctx context.Context, dirPath string, groupIDs []string) error {
	jobs := make(chan string, 64)
	var walkErr error

	var uploaded atomic.Int64
	var failed atomic.Int64

	// Producer: walk the tree and enqueue regular files.
	go func() {
		defer close(jobs)
		walkErr = filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			select {
			case jobs <- path:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	workers := flagWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []uploadResult
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				res := uploadFile(ctx, path, groupIDs)
				mu.Lock()
				if res.Error != "" {
					output.Errorf("  Failed: %s: %s\n", res.Path, res.Error)
					failed.Add(1)
				} else {
					if !flagJSON {
						output.Printf("  Uploaded: %s (%s)\n", res.Name, output.FormatSize(res.Size))
					}
					uploaded.Add(1)
				}
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if walkErr != nil {
		return fmt.Errorf("walking directory: %w", walkErr)
	}

	if flagJSON {
		output.JSON(results)
	} else {
		output.Printf("\nDone: %d uploaded, %d failed\n", uploaded.Load(), failed.Load())
	}
	if failed.Load() > 0 {
		return fmt.Errorf("%d file(s) failed to upload", failed.Load())
	}
	return nil
}

func uploadFile(ctx context.Context, path string, groupIDs []string) uploadResult {
	res := uploadResult{Path: path, Name: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Size = info.Size()

	mimeType, err := detectMIME(f, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	modified := info.ModTime().Unix()
	meta := filez.CreateFileRequest{
		Name:               res.Name,
		MimeType:           mimeType,
		StaticFileGroupIDs: groupIDs,
		Created:            &modified,
		Modified:           &modified,
	}
	if err := client.CreateFile(ctx, f, meta); err != nil {
		res.Error = err.Error()
	}
	return res
}

// detectMIME guesses from the extension, then from the first 512 bytes, and rewinds f.
func detectMIME(f *os.File, path string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t, nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

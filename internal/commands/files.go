package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/spf13/cobra"
)

var (
	flagSearchGroup string
	flagSearchLimit int

	flagFrom  int
	flagLimit int
	flagSort  string
	flagOrder string

	flagCatOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search files by name, keyword or type",
	Long: `Search the files you own, or the files of one group with --group.
Matching is case-insensitive over name, keywords and MIME type.

  filez search invoice
  filez search invoice --group <group-id> --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		files, err := client.Search(ctx, filez.SearchRequest{
			GroupID: flagSearchGroup,
			Query:   args[0],
			Limit:   flagSearchLimit,
		})
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		return printFiles(files)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file-id>",
	Short: "Show file details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		file, err := fileInfo(ctx, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(file)
			return nil
		}
		output.FileDetail(*file)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <group-id>",
	Short: "List the files of a group",
	Long: `List the files of a static or dynamic group.

  filez ls <group-id>
  filez ls <group-id> --sort size --order desc --limit 20
  filez ls <group-id> --from 20 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		params, err := listParams(flagFrom, flagLimit, flagSort, flagOrder)
		if err != nil {
			return err
		}
		files, err := client.GetFileInfosByGroupID(ctx, args[0], params)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		return printFiles(files)
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <file-id>",
	Short: "Print a file's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		content, err := client.GetFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("downloading: %w", err)
		}
		if flagCatOutput != "" {
			if err := os.WriteFile(flagCatOutput, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", flagCatOutput, err)
			}
			output.Printf("Saved %s (%s)\n", flagCatOutput, output.FormatSize(int64(len(content))))
			return nil
		}
		output.Printf("%s", content)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <file-id> <new-name>",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateFile(cmd.Context(), args[0], filez.NameField(args[1]))
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <file-id> [keyword...]",
	Short: "Replace a file's keywords",
	Long: `Replace the keywords of a file. Without keywords, all are removed.

  filez tag <file-id> finance q3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateFile(cmd.Context(), args[0], filez.KeywordsField(args[1:]))
	},
}

var retypeCmd = &cobra.Command{
	Use:   "retype <file-id> <mime-type>",
	Short: "Change a file's MIME type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateFile(cmd.Context(), args[0], filez.MimeTypeField(args[1]))
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <file-id> [group-id...]",
	Short: "Replace the static groups a file belongs to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateFile(cmd.Context(), args[0], filez.StaticFileGroupIDsField(args[1:]))
	},
}

var chownCmd = &cobra.Command{
	Use:   "chown <file-id> <user-id>",
	Short: "Transfer a file to another user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateFile(cmd.Context(), args[0], filez.OwnerIDField(args[1]))
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchGroup, "group", "", "Restrict the search to a group")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "Maximum number of results (0: all)")

	lsCmd.Flags().IntVar(&flagFrom, "from", 0, "Index of the first file")
	lsCmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum number of files (0: all)")
	lsCmd.Flags().StringVar(&flagSort, "sort", "", "Sort field: name, size, created, modified, mime_type")
	lsCmd.Flags().StringVar(&flagOrder, "order", "", "Sort order: asc, desc")

	catCmd.Flags().StringVarP(&flagCatOutput, "output", "o", "", "Write the content to a file instead of stdout")

	rootCmd.AddCommand(searchCmd, infoCmd, lsCmd, catCmd, renameCmd, tagCmd, retypeCmd, assignCmd, chownCmd)
}

func printFiles(files []filez.File) error {
	if flagJSON {
		if files == nil {
			files = []filez.File{}
		}
		output.JSON(files)
		return nil
	}
	output.FileTable(files)
	return nil
}

// fileInfo fetches a file, treating an empty answer as not found.
func fileInfo(ctx context.Context, id string) (*filez.File, error) {
	file, err := client.GetFileInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching file: %w", err)
	}
	if file.ID == "" {
		return nil, fmt.Errorf("file %s not found or not accessible", id)
	}
	return file, nil
}

func updateFile(ctx context.Context, id string, field filez.FileInfoField) error {
	if err := requireAuth(ctx); err != nil {
		return err
	}
	if err := client.UpdateFileInfos(ctx, id, field); err != nil {
		return fmt.Errorf("updating file: %w", err)
	}
	if flagJSON {
		file, err := fileInfo(ctx, id)
		if err != nil {
			return err
		}
		output.JSON(file)
		return nil
	}
	output.Printf("Updated %s.\n", id)
	return nil
}

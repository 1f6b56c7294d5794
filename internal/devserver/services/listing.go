package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
)

// Sort fields accepted by get_file_infos_by_group_id.
const (
	SortByName     = "name"
	SortBySize     = "size"
	SortByCreated  = "created"
	SortByModified = "modified"
	SortByMimeType = "mime_type"
)

var ErrInvalidSort = errors.New("invalid sort")

// SortFiles orders files in place. An empty field keeps the current order.
func SortFiles(files []models.File, field string, order filez.SortOrder) error {
	var less func(a, b *models.File) bool
	switch field {
	case "":
		return nil
	case SortByName:
		less = func(a, b *models.File) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortBySize:
		less = func(a, b *models.File) bool { return a.Size < b.Size }
	case SortByCreated:
		less = func(a, b *models.File) bool { return a.Created < b.Created }
	case SortByModified:
		less = func(a, b *models.File) bool { return modified(a) < modified(b) }
	case SortByMimeType:
		less = func(a, b *models.File) bool { return a.MimeType < b.MimeType }
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidSort, field)
	}

	switch order {
	case "", filez.SortAscending:
	case filez.SortDescending:
		asc := less
		less = func(a, b *models.File) bool { return asc(b, a) }
	default:
		return fmt.Errorf("%w: unknown order %q", ErrInvalidSort, order)
	}

	sort.SliceStable(files, func(i, j int) bool { return less(&files[i], &files[j]) })
	return nil
}

func modified(f *models.File) int64 {
	if f.Modified != nil {
		return *f.Modified
	}
	return f.Created
}

// Page returns the window [from, from+limit). A negative limit means no limit.
func Page[T any](items []T, from, limit int) []T {
	if from < 0 {
		from = 0
	}
	if from >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit >= 0 && limit < end-from {
		end = from + limit
	}
	return items[from:end]
}

// SearchFiles keeps files whose name, mime type or a keyword contains query,
// ignoring case. A limit of zero or less keeps every match.
func SearchFiles(files []models.File, query string, limit int) []models.File {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []models.File{}
	for i := range files {
		if limit > 0 && len(out) >= limit {
			break
		}
		if matchesQuery(&files[i], needle) {
			out = append(out, files[i])
		}
	}
	return out
}

func matchesQuery(f *models.File, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(f.Name), needle) || strings.Contains(strings.ToLower(f.MimeType), needle) {
		return true
	}
	for _, keyword := range f.Keywords {
		if strings.Contains(strings.ToLower(keyword), needle) {
			return true
		}
	}
	return false
}

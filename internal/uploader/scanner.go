package uploader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parnexcodes/dbxup/internal/pathutil"
)

// DefaultScanner implements the Scanner interface
type DefaultScanner struct{}

// Scan walks dir and calls visit for every regular file below it, and for
// every entry that could not be read. Paths passed to visit are relative
// to root.
func (s *DefaultScanner) Scan(ctx context.Context, root, dir string, visit func(FileInfo) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		fileInfo := FileInfo{Path: pathutil.Normalize(filepath.ToSlash(rel))}

		if err != nil {
			fileInfo.Err = err
			if visitErr := visit(fileInfo); visitErr != nil {
				return visitErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		// Symlinks to regular files count as files.
		info, err := os.Stat(path)
		if err != nil {
			fileInfo.Err = err
			return visit(fileInfo)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		fileInfo.Size = info.Size()
		fileInfo.Modified = info.ModTime()

		return visit(fileInfo)
	})
}

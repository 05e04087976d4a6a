package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"
)

var migrationExtensions = []string{".gremlin", ".groovy"}

// FileMigrationSource discovers migration scripts below a root directory.
type FileMigrationSource struct {
	fsys fs.FS
	root string
}

// NewFileMigrationSource returns a source rooted at dir on the local disk.
func NewFileMigrationSource(dir string) *FileMigrationSource {
	return &FileMigrationSource{fsys: os.DirFS(dir), root: "."}
}

// NewFSMigrationSource returns a source over an arbitrary file system, e.g. an
// embed.FS or fstest.MapFS.
func NewFSMigrationSource(fsys fs.FS, root string) *FileMigrationSource {
	if root == "" {
		root = "."
	}
	return &FileMigrationSource{fsys: fsys, root: root}
}

// ListCandidates walks the source recursively and returns every regular
// .gremlin or .groovy file, sorted by file name. With zero padded versions
// this is ascending version order.
func (s *FileMigrationSource) ListCandidates() ([]MigrationFile, error) {
	var files []MigrationFile
	err := fs.WalkDir(s.fsys, s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !hasMigrationExtension(d.Name()) {
			return nil
		}
		files = append(files, MigrationFile{FS: s.fsys, Path: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("an error occurred locating migration files in %s: %w", s.root, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := files[i].Name(), files[j].Name()
		if ni != nj {
			return ni < nj
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func hasMigrationExtension(name string) bool {
	return slices.Contains(migrationExtensions, path.Ext(name))
}

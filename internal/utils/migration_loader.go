package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/dfryer1193/graphmigrate/api"
)

var versionFilePattern = regexp.MustCompile(`(?i)^v(\d{3})_.*\.(gremlin|groovy)$`)

// MigrationFile is a candidate migration script inside a file system.
type MigrationFile struct {
	FS   fs.FS
	Path string
}

// Name returns the base name of the file, which encodes its version.
func (f MigrationFile) Name() string {
	return path.Base(f.Path)
}

type MigrationLoader struct {
	parser *StatementParser
}

func NewMigrationLoader(parser *StatementParser) *MigrationLoader {
	if parser == nil {
		parser = NewStatementParser()
	}
	return &MigrationLoader{parser: parser}
}

// Load reads a migration script and returns it with its version, checksum and
// parsed statements. No validation of the statements themselves is done.
func (l *MigrationLoader) Load(file MigrationFile) (*api.Migration, error) {
	if _, err := fs.Stat(file.FS, file.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, file.Path)
		}
		return nil, fmt.Errorf("%w: %s: %v", api.ErrIO, file.Path, err)
	}

	version, err := ParseVersion(file.Name())
	if err != nil {
		return nil, err
	}

	content, err := fs.ReadFile(file.FS, file.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrIO, file.Path, err)
	}

	return &api.Migration{
		FileName:   file.Name(),
		Version:    version,
		Checksum:   Checksum(content),
		Statements: l.parser.Parse(SplitLines(string(content))),
	}, nil
}

// ParseVersion extracts the numeric version from a migration file name.
func ParseVersion(name string) (int, error) {
	m := versionFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: %s: name must have the form "+
			"v{version_number:03d}_{description}.{extension:(groovy|gremlin)} e.g v001_migration.gremlin",
			api.ErrInvalidName, name)
	}

	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", api.ErrInvalidName, name, err)
	}
	return version, nil
}

// SplitLines splits a script into lines without a line length limit. Both
// "\n" and "\r\n" endings are accepted and a trailing newline does not yield
// an empty last line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

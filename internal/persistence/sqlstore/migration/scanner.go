package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

type fileScanner struct{}

// NewScanner returns a Scanner reading *.sql files from the root of an fs.FS.
func NewScanner() Scanner {
	return fileScanner{}
}

// ScanMigrations returns the migrations found in fsys ordered by version.
func (fileScanner) ScanMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, newMigrationError("", ".", "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	s := fileScanner{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if err := s.ValidateFileName(entry.Name()); err != nil {
			return nil, newMigrationError("", entry.Name(), "validate filename", err)
		}

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, newMigrationError("", entry.Name(), "read file", err)
		}
		migration, err := parseMigration(entry.Name(), string(content))
		if err != nil {
			return nil, err
		}

		number, _ := strconv.Atoi(migration.Version)
		if existing, ok := seen[number]; ok {
			return nil, newMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, existing, entry.Name()))
		}
		seen[number] = entry.Name()
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

// ValidateFileName checks the {version}_{description}.sql convention.
func (fileScanner) ValidateFileName(filename string) error {
	if !fileNamePattern.MatchString(filename) {
		return fmt.Errorf("%w: filename %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, filename)
	}
	return nil
}

func parseMigration(filename, content string) (Migration, error) {
	matches := fileNamePattern.FindStringSubmatch(filename)
	version := matches[1]

	if strings.TrimSpace(stripComments(content)) == "" {
		return Migration{}, newMigrationError(version, filename, "validate content",
			fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}
	if strings.Count(content, "(") != strings.Count(content, ")") {
		return Migration{}, newMigrationError(version, filename, "validate content",
			fmt.Errorf("%w: unbalanced parentheses", ErrInvalidMigrationFile))
	}

	description := descriptionFromContent(content)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Description: description,
		SQL:         content,
		FilePath:    path.Clean(filename),
		Checksum:    fmt.Sprintf("%x", sha256.Sum256([]byte(content))),
	}, nil
}

func descriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// splitStatements breaks a migration into individual statements.
func splitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(stripComments(sql), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

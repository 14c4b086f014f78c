package migration

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

type fileScanner struct{}

// NewFileScanner returns a scanner for {version}_{description}.sql files.
func NewFileScanner() FileScanner {
	return fileScanner{}
}

// ScanMigrations scans root inside fsys for migration files.
func (s fileScanner) ScanMigrations(fsys fs.FS, root string) ([]Migration, error) {
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, NewMigrationError("", root, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if err := s.ValidateFileName(entry.Name()); err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		content, err := fs.ReadFile(fsys, path.Join(root, entry.Name()))
		if err != nil {
			return nil, NewMigrationError("", entry.Name(), "read file", err)
		}
		migration, err := parseMigration(entry.Name(), string(content))
		if err != nil {
			return nil, err
		}

		number, _ := strconv.Atoi(migration.Version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s",
					ErrDuplicateVersion, migration.Version, existing, entry.Name()))
		}
		seen[number] = entry.Name()
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ValidateFileName checks if migration file follows naming convention
func (fileScanner) ValidateFileName(filename string) error {
	matches := migrationFilePattern.FindStringSubmatch(filename)
	if matches == nil {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidVersion, matches[1], filename)
	}
	return nil
}

func parseMigration(name, content string) (Migration, error) {
	matches := migrationFilePattern.FindStringSubmatch(name)
	version := matches[1]

	if strings.TrimSpace(stripComments(content)) == "" {
		return Migration{}, NewMigrationError(version, name, "validate content",
			fmt.Errorf("%w: migration file has no statements", ErrInvalidMigrationFile))
	}
	if err := checkParentheses(content); err != nil {
		return Migration{}, NewMigrationError(version, name, "validate SQL syntax", err)
	}

	description := descriptionFromContent(content)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Description: description,
		SQL:         content,
		Name:        name,
		Checksum:    Checksum(content),
	}, nil
}

// Checksum returns the hex encoded BLAKE2b-256 digest of a migration body.
func Checksum(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	var kept []string
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx != -1 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func checkParentheses(sql string) error {
	depth := 0
	for _, char := range stripComments(sql) {
		switch char {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

// descriptionFromContent reads a leading "-- Description: ..." comment.
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

package storage

import (
	"bytes"
	"errors"
	"io"
	"text/template"

	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var errDialectSourceReopen = errors.New("dialect source must be created through NewDialectSource")

// DialectSource serves migration files after rendering them as Go templates
// against the target SQL dialect, so one migration directory can carry the
// MySQL and SQLite forms of a statement side by side:
//
//	CREATE TABLE `recovery_item` (
//	    `id` CHAR(20) NOT NULL,
//	    PRIMARY KEY (`id`)
//	){{if eq .Dialect "mysql"}} ENGINE=InnoDB DEFAULT CHARSET=utf8mb4{{end}};
//
// Statements outside template actions apply to every dialect.
type DialectSource struct {
	files   source.Driver
	dialect string
}

// NewDialectSource opens the file source at sourceURL (a "file://" URL) and
// renders every migration it serves for the given dialect, "mysql" or
// "sqlite3".
func NewDialectSource(sourceURL string, dialect string) (*DialectSource, error) {
	files, err := source.Open(sourceURL)
	if err != nil {
		return nil, err
	}
	return &DialectSource{files: files, dialect: dialect}, nil
}

// Open satisfies source.Driver; the source is always constructed with
// NewDialectSource since the dialect cannot travel in the URL.
func (dialectSource *DialectSource) Open(url string) (source.Driver, error) {
	return nil, errDialectSourceReopen
}

// Close closes the wrapped file source.
func (dialectSource *DialectSource) Close() error {
	return dialectSource.files.Close()
}

// First returns the first available migration version.
func (dialectSource *DialectSource) First() (uint, error) {
	return dialectSource.files.First()
}

// Prev returns the version preceding the given one.
func (dialectSource *DialectSource) Prev(version uint) (uint, error) {
	return dialectSource.files.Prev(version)
}

// Next returns the version following the given one.
func (dialectSource *DialectSource) Next(version uint) (uint, error) {
	return dialectSource.files.Next(version)
}

// ReadUp serves the rendered UP migration for version.
func (dialectSource *DialectSource) ReadUp(version uint) (io.ReadCloser, string, error) {
	return dialectSource.renderMigration(dialectSource.files.ReadUp(version))
}

// ReadDown serves the rendered DOWN migration for version.
func (dialectSource *DialectSource) ReadDown(version uint) (io.ReadCloser, string, error) {
	return dialectSource.renderMigration(dialectSource.files.ReadDown(version))
}

func (dialectSource *DialectSource) renderMigration(reader io.ReadCloser, identifier string, readErr error) (io.ReadCloser, string, error) {
	if readErr != nil {
		return nil, "", readErr
	}
	rendered, err := renderDialectSQL(reader, dialectSource.dialect)
	if err != nil {
		return nil, "", err
	}
	return rendered, identifier, nil
}

var renderDialectSQL = func(reader io.ReadCloser, dialect string) (io.ReadCloser, error) {
	defer reader.Close()
	migrationSQL, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	// Plain migrations without template actions pass through untouched
	if !bytes.Contains(migrationSQL, []byte("{{")) {
		return io.NopCloser(bytes.NewReader(migrationSQL)), nil
	}
	parsedTemplate, err := template.New("migration").Parse(string(migrationSQL))
	if err != nil {
		return nil, err
	}
	var renderedSQL bytes.Buffer
	err = parsedTemplate.Execute(&renderedSQL, struct{ Dialect string }{Dialect: dialect})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&renderedSQL), nil
}

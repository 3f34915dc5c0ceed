package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUntranslatable is returned when a type or an expression has no SQLite
// rendering.
var ErrUntranslatable = errors.New("sqlite: untranslatable")

// DB is a SQLite database holding one struct type per table.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// one connection: SQLite has a single writer and every :memory:
	// connection is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return &DB{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, nil
}

// SetLogger sets the logger receiving debug records of executed statements.
func (d *DB) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

// SQL returns the underlying database handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// CreateTable creates table with the columns of T, unless it exists.
func CreateTable[T any](ctx context.Context, d *DB, table string) error {
	s, err := schemaOf(reflect.TypeFor[T]())
	if err != nil {
		return err
	}

	decls := make([]string, len(s.columns))
	for i, c := range s.columns {
		decls[i] = c.decl()
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(decls, ", "))
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	d.logger.Debug("table created", "table", table, "type", s.typ.String(), "columns", len(s.columns))

	return nil
}

// Insert stores rows in table within one transaction.
func Insert[T any](ctx context.Context, d *DB, table string, rows ...T) (err error) {
	s, err := schemaOf(reflect.TypeFor[T]())
	if err != nil {
		return err
	}

	names := make([]string, len(s.columns))
	marks := make([]string, len(s.columns))

	for i, c := range s.columns {
		names[i] = quote(c.name)
		marks[i] = "?"
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(s.columns))
	for _, row := range rows {
		v := reflect.ValueOf(row)
		for i, c := range s.columns {
			args[i] = columnValue(v.FieldByIndex(c.index))
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	d.logger.Debug("rows inserted", "table", table, "rows", len(rows))

	return nil
}

func columnValue(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	return v.Interface()
}

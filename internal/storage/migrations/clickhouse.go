package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	chstore "tweet-price-lab/internal/storage/clickhouse"
)

// ErrInvalidMigration is returned for scripts the statement splitter cannot handle.
var ErrInvalidMigration = errors.New("invalid migration")

// ClickhouseExecer runs one statement. *chstore.Conn satisfies it.
type ClickhouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the candle database named in dsn, applies the
// embedded scripts and returns a connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = CreateClickhouseDatabase(ctx, admin, dbName)
	if cerr := admin.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close admin connection: %w", cerr)
	}
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := ApplyClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// CreateClickhouseDatabase issues CREATE DATABASE IF NOT EXISTS for name.
func CreateClickhouseDatabase(ctx context.Context, db ClickhouseExecer, name string) error {
	if !databaseName.MatchString(name) {
		return fmt.Errorf("%w: database name %q", ErrInvalidMigration, name)
	}
	if err := db.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+name); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// ApplyClickhouseMigrations runs every embedded script one statement at a
// time, in file order, stopping at the first failure. The native driver
// rejects multi-statement Exec.
func ApplyClickhouseMigrations(ctx context.Context, db ClickhouseExecer) error {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	for _, file := range files {
		data, err := ClickhouseFS.ReadFile("clickhouse/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := clickhouseStatements(string(data))
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", file, err)
		}
		for i, stmt := range stmts {
			if err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", file, i+1, err)
			}
		}
	}
	return nil
}

// clickhouseStatements drops -- comment lines and splits on semicolons.
// Quoted semicolons are rejected rather than parsed.
func clickhouseStatements(script string) ([]string, error) {
	inString := false
	for i := 0; i < len(script); i++ {
		switch script[i] {
		case '\'':
			if inString && i+1 < len(script) && script[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return nil, fmt.Errorf("%w: semicolon inside string literal at byte %d", ErrInvalidMigration, i)
			}
		}
	}

	var kept []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"hltvstats-backend/internal/components/telemetry"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectLibsql   Dialect = "libsql"
)

// DialectOf picks the driver from a dsn: postgres:// and postgresql:// go to pgx,
// libsql:// goes to the libsql client, everything else is a sqlite file.
func DialectOf(dsn string) Dialect {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(dsn, "libsql://"):
		return DialectLibsql
	default:
		return DialectSQLite
	}
}

// Open opens and pings a database, the dialect is derived from the dsn.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	dialect := DialectOf(dsn)

	var db *sql.DB
	var err error
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, "", err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(1 * time.Hour)
	case DialectLibsql:
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, "", err
		}
	default:
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, "", err
		}
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, "", err
			}
		}
		_, err = db.ExecContext(ctx, "PRAGMA foreign_keys=ON")
		if err != nil {
			db.Close()
			return nil, "", err
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = db.PingContext(pingCtx)
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("db ping: %w", err)
	}
	return db, dialect, nil
}

// goose keeps its configuration in package globals
var migrateLock sync.Mutex

type gooseLogger struct {
	tel telemetry.API
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.tel.ReportBroken("store.migrate", fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.tel.ReportDebug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate applies every embedded migration of the dialect.
func Migrate(db *sql.DB, dialect Dialect, tel telemetry.API) error {
	migrateLock.Lock()
	defer migrateLock.Unlock()

	dir := "migrations/sqlite"
	gooseDialect := "sqlite3"
	switch dialect {
	case DialectPostgres:
		dir = "migrations/postgres"
		gooseDialect = "postgres"
	case DialectLibsql:
		gooseDialect = "turso"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{tel: tel})
	err := goose.SetDialect(gooseDialect)
	if err != nil {
		return err
	}
	return goose.Up(db, path.Clean(dir))
}

// rebind rewrites `?` placeholders into `$n` for postgres.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var out strings.Builder
	n := 0
	for _, c := range query {
		if c != '?' {
			out.WriteRune(c)
			continue
		}
		n++
		out.WriteString("$")
		out.WriteString(strconv.Itoa(n))
	}
	return out.String()
}

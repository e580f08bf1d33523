package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgInvalidCatalogName = "3D000"
	pgDuplicateDatabase  = "42P04"

	pgMaintenanceDatabase = "postgres"
)

type postgresDialect struct{}

func postgresURL(dict config.DatabaseDict, database string) string {
	host := dict.Host
	if host == "" {
		host = "localhost"
	}
	port := dict.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + database,
	}
	if dict.User != "" {
		if dict.Password != "" {
			u.User = url.UserPassword(dict.User, dict.Password)
		} else {
			u.User = url.User(dict.User)
		}
	}
	if dict.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {dict.SSLMode}}.Encode()
	}
	return u.String()
}

func (postgresDialect) driverName() string { return "pgx" }

func (postgresDialect) dsn(dict config.DatabaseDict) string {
	return postgresURL(dict, dict.DatabaseName)
}

func (postgresDialect) prepare(context.Context, config.DatabaseDict, bool) error {
	return nil
}

func (postgresDialect) isNotExist(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidCatalogName
}

func (postgresDialect) createDatabase(ctx context.Context, dict config.DatabaseDict) error {
	conn, err := pgx.Connect(ctx, postgresURL(dict, pgMaintenanceDatabase))
	if err != nil {
		return fmt.Errorf("failed to connect to maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dict.DatabaseName}.Sanitize())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabase {
		return nil
	}
	return err
}

func (postgresDialect) configure(context.Context, *sql.DB) error {
	return nil
}

func (postgresDialect) tableNamesQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema()"
}

func (postgresDialect) intType() string   { return "BIGINT" }
func (postgresDialect) floatType() string { return "DOUBLE PRECISION" }

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

// identifier folds to lower case, as Postgres does for unquoted names.
func (postgresDialect) identifier(name string) string { return strings.ToLower(name) }

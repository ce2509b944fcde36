package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"fulfillment/internal/config"
)

const (
	ErrDuplicateEntry  = 1062
	ErrLockDeadlock    = 1213
	ErrLockWaitTimeout = 1205
)

type Option func(*driver.Config)

// WithMultiStatements is needed by the migration runner only.
func WithMultiStatements() Option {
	return func(c *driver.Config) {
		c.MultiStatements = true
	}
}

// DSN renders the connection string. ClientFoundRows makes UPDATE report
// matched rows, which the conditional writes depend on.
func DSN(cfg config.DatabaseConfig, opts ...Option) string {
	dc := driver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.ClientFoundRows = true
	for _, opt := range opts {
		opt(dc)
	}
	return dc.FormatDSN()
}

func NewConnection(cfg config.DatabaseConfig, opts ...Option) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg, opts...))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func IsDuplicateEntry(err error) bool {
	return hasErrorNumber(err, ErrDuplicateEntry)
}

func IsDeadlock(err error) bool {
	return hasErrorNumber(err, ErrLockDeadlock, ErrLockWaitTimeout)
}

func hasErrorNumber(err error, numbers ...uint16) bool {
	var mysqlErr *driver.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	for _, n := range numbers {
		if mysqlErr.Number == n {
			return true
		}
	}
	return false
}

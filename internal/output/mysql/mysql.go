// Package mysql stores alerts in a MySQL table.
//
// Every Write opens its own connection, inserts the alert inside a
// transaction and closes the connection again, so a database outage only
// affects the alerts raised while it lasts.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

const defaultTimeout = 5 * time.Second

// Config describes the MySQL server and target table.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Table    string        // default output.DefaultTable
	Timeout  time.Duration // dial timeout, default 5s
}

// Output inserts one row per alert.
type Output struct {
	cfg    *mysql.Config
	table  string
	insert string
}

// New validates cfg. No connection is made until the first Write.
func New(cfg Config) (*Output, error) {
	if cfg.Table == "" {
		cfg.Table = output.DefaultTable
	}
	if err := output.ValidateTable(cfg.Table); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("mysql output: host is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mysql output: database is required")
	}
	return &Output{
		cfg:    driverConfig(cfg),
		table:  cfg.Table,
		insert: insertQuery(cfg.Table),
	}, nil
}

func driverConfig(cfg Config) *mysql.Config {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.Timeout
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

func insertQuery(table string) string {
	return "INSERT INTO " + table + " (event_time, alert_level) VALUES (?, ?)"
}

func schemaQuery(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + ` (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	event_time DATETIME(3) NOT NULL,
	alert_level INT NOT NULL,
	KEY idx_event_time (event_time)
)`
}

// Addr returns host:port of the server, for logging.
func (o *Output) Addr() string { return o.cfg.Addr }

func (o *Output) open(ctx context.Context) (*sql.DB, error) {
	connector, err := mysql.NewConnector(o.cfg)
	if err != nil {
		return nil, output.Fail("mysql", "connect", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, output.Fail("mysql", "connect", err)
	}
	return db, nil
}

// EnsureSchema creates the alert table if it does not exist.
func (o *Output) EnsureSchema(ctx context.Context) error {
	db, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, schemaQuery(o.table))
	return output.Fail("mysql", "create table", err)
}

// Write inserts the alert's timestamp and level and commits.
func (o *Output) Write(ctx context.Context, alert model.AlertEvent) error {
	db, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return output.Fail("mysql", "begin", err)
	}
	if _, err := tx.ExecContext(ctx, o.insert, alert.Timestamp, alert.Level); err != nil {
		tx.Rollback()
		return output.Fail("mysql", "insert", err)
	}
	return output.Fail("mysql", "commit", tx.Commit())
}

// Close is a no-op; connections do not outlive a Write.
func (o *Output) Close() error {
	return nil
}

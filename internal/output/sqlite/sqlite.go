// Package sqlite stores alerts in a local SQLite database file.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

// TimeLayout is the text format of the event_time column, in local time.
const TimeLayout = "2006-01-02 15:04:05.000"

const openFlags = sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL

// Output inserts one row per alert. Like the MySQL sink, each Write opens
// and closes its own connection.
type Output struct {
	path   string
	table  string
	insert string
}

// New validates the table name and creates the table if needed.
func New(path, table string) (*Output, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite output: path is required")
	}
	if table == "" {
		table = output.DefaultTable
	}
	if err := output.ValidateTable(table); err != nil {
		return nil, err
	}
	o := &Output{
		path:   path,
		table:  table,
		insert: "INSERT INTO " + table + " (event_time, alert_level, alert_id, name) VALUES (?, ?, ?, ?)",
	}

	conn, err := o.open(context.Background())
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := sqlitex.ExecuteScript(conn, schema(table), nil); err != nil {
		return nil, output.Fail("sqlite", "create table", err)
	}
	return o, nil
}

func schema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_time TEXT NOT NULL,
	alert_level INTEGER NOT NULL,
	alert_id TEXT,
	name TEXT
);
CREATE INDEX IF NOT EXISTS %[1]s_event_time ON %[1]s (event_time);
`, table)
}

func (o *Output) open(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(o.path, openFlags)
	if err != nil {
		return nil, output.Fail("sqlite", "open", err)
	}
	conn.SetInterrupt(ctx.Done())
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout=5000", nil); err != nil {
		conn.Close()
		return nil, output.Fail("sqlite", "open", err)
	}
	return conn, nil
}

// Write inserts the alert in its own IMMEDIATE transaction.
func (o *Output) Write(ctx context.Context, alert model.AlertEvent) (err error) {
	conn, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return output.Fail("sqlite", "begin", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, o.insert, &sqlitex.ExecOptions{
		Args: []any{
			alert.Timestamp.In(time.Local).Format(TimeLayout),
			alert.Level,
			alert.ID,
			alert.Name,
		},
	})
	return output.Fail("sqlite", "insert", err)
}

// Row is one stored alert.
type Row struct {
	EventTime time.Time
	Level     int
	AlertID   string
	Name      string
}

// Recent returns up to limit rows, newest first.
func (o *Output) Recent(ctx context.Context, limit int) ([]Row, error) {
	conn, err := o.open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rows []Row
	err = sqlitex.Execute(conn,
		"SELECT event_time, alert_level, alert_id, name FROM "+o.table+" ORDER BY id DESC LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ts, err := time.ParseInLocation(TimeLayout, stmt.ColumnText(0), time.Local)
				if err != nil {
					return err
				}
				rows = append(rows, Row{
					EventTime: ts,
					Level:     stmt.ColumnInt(1),
					AlertID:   stmt.ColumnText(2),
					Name:      stmt.ColumnText(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, output.Fail("sqlite", "query", err)
	}
	return rows, nil
}

// Close is a no-op; connections do not outlive a call.
func (o *Output) Close() error {
	return nil
}

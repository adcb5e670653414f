package mysql

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

func testConfig() Config {
	return Config{
		Host:     "db.local",
		Port:     3306,
		User:     "sensor",
		Password: "s3cret",
		Database: "water_quality",
	}
}

func TestNewDefaults(t *testing.T) {
	o, err := New(testConfig())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if o.table != output.DefaultTable {
		t.Errorf("table = %q, want %q", o.table, output.DefaultTable)
	}
	if o.Addr() != "db.local:3306" {
		t.Errorf("Addr() = %q", o.Addr())
	}
	want := "INSERT INTO silver_ion_events (event_time, alert_level) VALUES (?, ?)"
	if o.insert != want {
		t.Errorf("insert = %q, want %q", o.insert, want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad table", func(c *Config) { c.Table = "events; DROP TABLE x" }},
		{"no host", func(c *Config) { c.Host = "" }},
		{"no database", func(c *Config) { c.Database = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDriverConfig(t *testing.T) {
	c := driverConfig(testConfig())
	if c.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, defaultTimeout)
	}
	if !c.ParseTime {
		t.Error("ParseTime should be enabled")
	}

	dsn := c.FormatDSN()
	for _, part := range []string{"sensor:s3cret@tcp(db.local:3306)/water_quality", "parseTime=true", "timeout=5s"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}

func TestDriverConfigIPv6(t *testing.T) {
	cfg := testConfig()
	cfg.Host = "::1"
	if got := driverConfig(cfg).Addr; got != "[::1]:3306" {
		t.Errorf("Addr = %q, want [::1]:3306", got)
	}
}

func TestSchemaQuery(t *testing.T) {
	q := schemaQuery("alerts")
	for _, part := range []string{"CREATE TABLE IF NOT EXISTS alerts", "event_time DATETIME(3) NOT NULL", "alert_level INT NOT NULL"} {
		if !strings.Contains(q, part) {
			t.Errorf("schema missing %q", part)
		}
	}
}

func TestWriteUnreachableServer(t *testing.T) {
	// Reserve a port, then free it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.Timeout = time.Second
	o, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = o.Write(context.Background(), model.AlertEvent{Timestamp: time.Now(), Level: 3})
	var se *output.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if se.Sink != "mysql" || se.Op != "connect" {
		t.Errorf("unexpected error fields: %+v", se)
	}
}

// Package ch provides the clickhouse client behind the store facade
package ch

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL  string
	Info clickhouse.ClientInfo
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() []string
	Err() error
	Close() error
}

// CH wraps a clickhouse-go connection pool
type CH struct {
	conn driver.Conn
}

// Open parses the DSN and builds the connection pool. The driver dials
// lazily; call Ping for an eager connectivity check
func Open(_ context.Context, cfg Config) (*CH, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = cfg.Info

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	return &CH{conn: conn}, nil
}

// Insert writes data into table via a batch. Structs and struct pointers
// are appended by their ch tags; [][]any appends positional rows
func (c *CH) Insert(ctx context.Context, table string, data any) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("ch: prepare batch %s: %w", table, err)
	}

	switch rows := data.(type) {
	case [][]any:
		for _, row := range rows {
			if err := batch.Append(row...); err != nil {
				return fmt.Errorf("ch: append row: %w", err)
			}
		}
	default:
		// AppendStruct needs a pointer; take an addressable copy of values
		if v := reflect.ValueOf(data); v.Kind() == reflect.Struct {
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			data = p.Interface()
		}
		if err := batch.AppendStruct(data); err != nil {
			return fmt.Errorf("ch: append struct: %w", err)
		}
	}
	return batch.Send()
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping verifies connectivity
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Close closes the connection pool
func (c *CH) Close() error { return c.conn.Close() }

// Package postgres records served exchanges in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/remote"
)

// DefaultTable receives exchanges when Config.Table is empty.
const DefaultTable = "llm_exchanges"

// Config holds PostgreSQL connection configuration
type Config struct {
	DSN   string
	Table string
}

// Recorder implements remote.Recorder using PostgreSQL
type Recorder struct {
	db    *sql.DB
	table string
}

var _ remote.Recorder = (*Recorder)(nil)

// New connects, verifies the connection and creates the table if needed.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	r := &Recorder{db: db, table: pq.QuoteIdentifier(cfg.Table)}
	if err := r.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return r, nil
}

func (r *Recorder) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id VARCHAR(64) PRIMARY KEY,
		llm_type TEXT NOT NULL,
		prompts TEXT[] NOT NULL,
		stop TEXT[] NOT NULL,
		result JSONB NOT NULL,
		path TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s(created_at);
	`, r.table, pq.QuoteIdentifier("idx_"+trimQuotes(r.table)+"_created_at"))

	_, err := r.db.ExecContext(ctx, query)
	return err
}

// row is the column form of an exchange.
type row struct {
	id         string
	llmType    string
	prompts    []string
	stop       []string
	result     []byte
	path       string
	durationMS int64
	createdAt  time.Time
}

func encodeRow(ex *remote.Exchange) (row, error) {
	if ex == nil {
		return row{}, fmt.Errorf("%w: exchange cannot be nil", errorskg.ErrInvalidInput)
	}
	result, err := json.Marshal(ex.Result)
	if err != nil {
		return row{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	r := row{
		id:         ex.ID,
		llmType:    ex.LLMType,
		prompts:    nonNil(ex.Prompts),
		stop:       nonNil(ex.Stop),
		result:     result,
		path:       ex.Path,
		durationMS: ex.Duration.Milliseconds(),
		createdAt:  ex.CreatedAt,
	}
	if r.id == "" {
		r.id = fmt.Sprintf("ex:%d", time.Now().UnixNano())
	}
	if r.createdAt.IsZero() {
		r.createdAt = time.Now().UTC()
	}
	return r, nil
}

func (r row) exchange() (*remote.Exchange, error) {
	ex := &remote.Exchange{
		ID:        r.id,
		LLMType:   r.llmType,
		Prompts:   r.prompts,
		Stop:      r.stop,
		Path:      r.path,
		Duration:  time.Duration(r.durationMS) * time.Millisecond,
		CreatedAt: r.createdAt,
	}
	var result llm.Result
	if err := json.Unmarshal(r.result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	ex.Result = &result
	return ex, nil
}

// Record inserts one exchange.
func (r *Recorder) Record(ctx context.Context, ex *remote.Exchange) error {
	rw, err := encodeRow(ex)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
	INSERT INTO %s (id, llm_type, prompts, stop, result, path, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.table)
	_, err = r.db.ExecContext(ctx, query,
		rw.id, rw.llmType, pq.Array(rw.prompts), pq.Array(rw.stop), rw.result, rw.path, rw.durationMS, rw.createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*remote.Exchange, error) {
	query := fmt.Sprintf(`
	SELECT id, llm_type, prompts, stop, result, path, duration_ms, created_at
	FROM %s ORDER BY created_at DESC LIMIT $1
	`, r.table)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var out []*remote.Exchange
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.llmType, pq.Array(&rw.prompts), pq.Array(&rw.stop),
			&rw.result, &rw.path, &rw.durationMS, &rw.createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex, err := rw.exchange()
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Get returns one exchange by id.
func (r *Recorder) Get(ctx context.Context, id string) (*remote.Exchange, error) {
	query := fmt.Sprintf(`
	SELECT id, llm_type, prompts, stop, result, path, duration_ms, created_at
	FROM %s WHERE id = $1
	`, r.table)
	var rw row
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rw.id, &rw.llmType, pq.Array(&rw.prompts), pq.Array(&rw.stop),
		&rw.result, &rw.path, &rw.durationMS, &rw.createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("exchange %q: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return rw.exchange()
}

// Count returns the number of stored exchanges.
func (r *Recorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count exchanges: %w", err)
	}
	return n, nil
}

// Clear removes every stored exchange.
func (r *Recorder) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", r.table))
	return err
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	return r.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

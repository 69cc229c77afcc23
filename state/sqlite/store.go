package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marketlyhq/contentscout/state"
	"github.com/marketlyhq/contentscout/types"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultBusyTimeout = 5 * time.Second
	defaultLimit       = 50
)

type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
}

type Option func(*Store)

func WithBusyTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) Option {
	return func(s *Store) {
		s.enableWAL = enabled
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	s := &Store{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s.db = db
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if s.busyTimeout > 0 {
		ms := int(s.busyTimeout / time.Millisecond)
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}
	if s.enableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable wal: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) SaveReport(ctx context.Context, record state.ReportRecord) error {
	if strings.TrimSpace(record.EntityID) == "" {
		return fmt.Errorf("entity id is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (entity_id, run_id, model, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			run_id = excluded.run_id,
			model = excluded.model,
			result_json = excluded.result_json,
			created_at = excluded.created_at`,
		record.EntityID, record.RunID, record.Model, string(resultJSON),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *Store) LoadReport(ctx context.Context, entityID string) (state.ReportRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_id, run_id, model, result_json, created_at
		FROM reports WHERE entity_id = ?`, entityID)
	record, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return state.ReportRecord{}, state.ErrNotFound
	}
	return record, err
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]state.ReportRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, run_id, model, result_json, created_at
		FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []state.ReportRecord
	for rows.Next() {
		record, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) LogCost(ctx context.Context, entry state.CostEntry) error {
	if strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_log (user_id, run_id, model, total_cost_usd, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.RunID, entry.Model, entry.TotalCostUSD, entry.TotalTokens,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to log cost: %w", err)
	}
	return nil
}

func (s *Store) ListCosts(ctx context.Context, userID string, limit int) ([]state.CostEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, run_id, model, total_cost_usd, total_tokens, created_at
		FROM cost_log WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list costs: %w", err)
	}
	defer rows.Close()

	var out []state.CostEntry
	for rows.Next() {
		var entry state.CostEntry
		var createdAt string
		if err := rows.Scan(&entry.UserID, &entry.RunID, &entry.Model, &entry.TotalCostUSD, &entry.TotalTokens, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost entry: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (state.ReportRecord, error) {
	var record state.ReportRecord
	var resultJSON, createdAt string
	if err := row.Scan(&record.EntityID, &record.RunID, &record.Model, &resultJSON, &createdAt); err != nil {
		return state.ReportRecord{}, err
	}
	var result types.ResearchResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return state.ReportRecord{}, fmt.Errorf("failed to decode stored result: %w", err)
	}
	record.Result = result
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return record, nil
}

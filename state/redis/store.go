package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/marketlyhq/contentscout/state"
)

const (
	defaultTTL    = 30 * 24 * time.Hour
	defaultLimit  = 50
	defaultPrefix = "cscout"
)

type Store struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*Store)

func WithPassword(password string) Option {
	return func(s *Store) {
		s.password = password
	}
}

func WithDB(db int) Option {
	return func(s *Store) {
		s.db = db
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &Store{
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}

	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

func (s *Store) SaveReport(ctx context.Context, record state.ReportRecord) error {
	if strings.TrimSpace(record.EntityID) == "" {
		return fmt.Errorf("entity id is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	reportKey := s.reportKey(record.EntityID)
	indexKey := s.reportIndexKey()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, reportKey, string(raw), s.ttl)
	pipe.ZAdd(ctx, indexKey, goredis.Z{
		Score:  float64(record.CreatedAt.Unix()),
		Member: record.EntityID,
	})
	pipe.Expire(ctx, indexKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report in redis: %w", err)
	}
	return nil
}

func (s *Store) LoadReport(ctx context.Context, entityID string) (state.ReportRecord, error) {
	if entityID == "" {
		return state.ReportRecord{}, fmt.Errorf("entity id is required")
	}

	raw, err := s.client.Get(ctx, s.reportKey(entityID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return state.ReportRecord{}, state.ErrNotFound
		}
		return state.ReportRecord{}, fmt.Errorf("failed to load report from redis: %w", err)
	}

	var record state.ReportRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return state.ReportRecord{}, fmt.Errorf("failed to decode report from redis: %w", err)
	}
	return record, nil
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]state.ReportRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	entityIDs, err := s.client.ZRevRange(ctx, s.reportIndexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports from redis: %w", err)
	}

	out := make([]state.ReportRecord, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		record, err := s.LoadReport(ctx, entityID)
		if err != nil {
			if err == state.ErrNotFound {
				// Expired report still indexed; skip it.
				continue
			}
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Store) LogCost(ctx context.Context, entry state.CostEntry) error {
	if strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cost entry: %w", err)
	}

	costKey := s.costKey(entry.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, costKey, string(raw))
	pipe.LTrim(ctx, costKey, 0, 999)
	pipe.Expire(ctx, costKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to log cost in redis: %w", err)
	}
	return nil
}

func (s *Store) ListCosts(ctx context.Context, userID string, limit int) ([]state.CostEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	raws, err := s.client.LRange(ctx, s.costKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list costs from redis: %w", err)
	}

	out := make([]state.CostEntry, 0, len(raws))
	for _, raw := range raws {
		var entry state.CostEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode cost entry from redis: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) reportKey(entityID string) string {
	return fmt.Sprintf("%s:report:%s", s.prefix, entityID)
}

func (s *Store) reportIndexKey() string {
	return fmt.Sprintf("%s:reports", s.prefix)
}

func (s *Store) costKey(userID string) string {
	return fmt.Sprintf("%s:costs:%s", s.prefix, userID)
}

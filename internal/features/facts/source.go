package facts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go-automation/internal/config"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Source loads the stored facts of one recipient. An unknown recipient
// yields an empty map, not an error.
type Source interface {
	Load(ctx context.Context, recipientID string) (map[string]interface{}, error)
}

// ContactSource reads facts from the Mongo contacts collection.
type ContactSource struct {
	Repo ContactRepository
}

func (s *ContactSource) Load(ctx context.Context, recipientID string) (map[string]interface{}, error) {
	contact, err := s.Repo.Get(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("load contact %s: %w", recipientID, err)
	}
	if contact == nil {
		return map[string]interface{}{}, nil
	}
	return contact.Facts(), nil
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads one row per recipient from a facts table keyed by
// recipient_id. Every column becomes a fact.
type PostgresSource struct {
	db    *sqlx.DB
	table string
}

func NewPostgresSource(db *sqlx.DB, table string) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid facts table name %q", table)
	}
	return &PostgresSource{db: db, table: table}, nil
}

func (s *PostgresSource) query(recipientID string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From(s.table)
	sb.Where(sb.Equal("recipient_id", recipientID))
	return sb.Build()
}

func (s *PostgresSource) Load(ctx context.Context, recipientID string) (map[string]interface{}, error) {
	query, args := s.query(recipientID)

	row := map[string]interface{}{}
	if err := s.db.QueryRowxContext(ctx, query, args...).MapScan(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("load facts row %s: %w", recipientID, err)
	}
	return normalizeRow(row), nil
}

// normalizeRow turns driver byte slices into strings and drops the key column.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		if k == "recipient_id" {
			continue
		}
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}

// ChainSource merges sources in order. Later sources win on conflicting
// names.
type ChainSource []Source

func (c ChainSource) Load(ctx context.Context, recipientID string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, src := range c {
		loaded, err := src.Load(ctx, recipientID)
		if err != nil {
			return nil, err
		}
		out = Merge(out, loaded)
	}
	return out, nil
}

// NewSource builds the fact source from config: contacts always, overlaid
// with the Postgres facts table when FACTS_POSTGRES_DSN is set.
func NewSource(lc fx.Lifecycle, cfg *config.Config, contacts ContactRepository, logger *zap.Logger) (Source, error) {
	chain := ChainSource{&ContactSource{Repo: contacts}}
	if cfg.FactsPostgresDSN == "" {
		return chain, nil
	}

	db, err := sqlx.Connect("postgres", cfg.FactsPostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect facts database: %w", err)
	}
	pg, err := NewPostgresSource(db, cfg.FactsPostgresTable)
	if err != nil {
		db.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	logger.Info("Postgres fact source enabled", zap.String("table", cfg.FactsPostgresTable))
	return append(chain, pg), nil
}

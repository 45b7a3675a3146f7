package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository stores each provider's config as a JSONB document next to its revision.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Get(ctx context.Context, providerID uuid.UUID) (*Config, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT document
		FROM schedule_configs
		WHERE provider_id = $1
	`, providerID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("load schedule config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, fmt.Errorf("decode schedule config: %w", err)
	}
	return &cfg, nil
}

func (r *PgRepository) Insert(ctx context.Context, cfg Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode schedule config: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO schedule_configs (provider_id, revision, document, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, cfg.ProviderID, cfg.Revision, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProviderExists
		}
		return fmt.Errorf("insert schedule config: %w", err)
	}
	return nil
}

func (r *PgRepository) Save(ctx context.Context, cfg Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode schedule config: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE schedule_configs
		SET revision = $2,
		    document = $3,
		    updated_at = now()
		WHERE provider_id = $1
		  AND revision = $2 - 1
	`, cfg.ProviderID, cfg.Revision, doc)
	if err != nil {
		return fmt.Errorf("save schedule config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, cfg.ProviderID); err != nil {
			return err
		}
		return ErrStaleRevision
	}
	return nil
}

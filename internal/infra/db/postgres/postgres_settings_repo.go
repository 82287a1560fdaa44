package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure settingsRepo implements repository.SettingsRepository
var _ repository.SettingsRepository = (*settingsRepo)(nil)

// settingsRepo reads system_settings rows. No caching: retry scheduling reads
// settings at call time so live changes apply to the next scheduled retry.
type settingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *settingsRepo {
	return &settingsRepo{pool: pool}
}

func (r *settingsRepo) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM system_settings WHERE key=$1;`
	var value string
	if err := r.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return value, nil
}

func (r *settingsRepo) GetInt(ctx context.Context, key string, def int) (int, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return def, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, nil
	}
	return n, nil
}

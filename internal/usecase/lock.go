package usecase

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v4"

	"subscription-billing/internal/domain/ports/repository"
)

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// lockSubscription takes a transaction-scoped advisory lock keyed on the
// subscription id. Billing jobs, retry jobs, and webhook handlers all touch
// the same subscription/invoice rows; the advisory lock serializes them so at
// most one job mutates a subscription at a time. The lock releases with the
// transaction. Non-pgx transaction handles (in-memory tests) are a no-op.
func lockSubscription(ctx context.Context, tx repository.Tx, subscriptionID string) error {
	t, ok := tx.(pgx.Tx)
	if !ok {
		return nil
	}
	_, err := t.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(subscriptionID))
	return err
}

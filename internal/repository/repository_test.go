package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/ayo6706/payment-screening/internal/testutil/testdb"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAdjustAccountBalancesEnforcesAvailableWithinBook(t *testing.T) {
	pool := testdb.Open(t)
	q := repository.New(pool)
	ctx := context.Background()

	id := uuid.New()
	_, err := q.CreateAccount(ctx, repository.CreateAccountParams{
		ID:         repository.ToPgUUID(id),
		HolderName: "Ayesha Khan",
		Currency:   "PKR",
	})
	require.NoError(t, err)

	row, err := q.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
		ID:        repository.ToPgUUID(id),
		BookDelta: 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), row.BookBalance)
	assert.Equal(t, int64(0), row.AvailableBalance)

	_, err = q.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
		ID:             repository.ToPgUUID(id),
		AvailableDelta: 2_000_000,
	})
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23514", pgErr.Code)

	row, err = q.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
		ID:             repository.ToPgUUID(id),
		AvailableDelta: 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), row.AvailableBalance)

	acc, err := q.GetAccount(ctx, repository.ToPgUUID(id))
	require.NoError(t, err)
	assert.Equal(t, acc.AvailableBalance, acc.Balance)
}

func TestInsertWebhookIsIdempotentAndClaimIsExclusive(t *testing.T) {
	pool := testdb.Open(t)
	q := repository.New(pool)
	ctx := context.Background()

	params := repository.InsertWebhookParams{
		ID:         "wh-1",
		Type:       "incoming_payment.completed",
		RawPayload: []byte(`{"id":"wh-1"}`),
	}
	first, err := q.InsertWebhook(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "received", first.Status)

	_, err = q.InsertWebhook(ctx, params)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	claimed, err := q.ClaimWebhook(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, "processing", claimed.Status)

	_, err = q.ClaimWebhook(ctx, "wh-1")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	n, err := q.UpdateWebhookStatus(ctx, repository.UpdateWebhookStatusParams{
		ID:           "wh-1",
		Status:       "processed",
		FromStatuses: []string{"processing"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// processed is terminal
	n, err = q.UpdateWebhookStatus(ctx, repository.UpdateWebhookStatusParams{
		ID:           "wh-1",
		Status:       "error",
		ErrorMessage: strPtr("late failure"),
		FromStatuses: []string{"received", "processing"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListActiveBlockListEntriesOrdering(t *testing.T) {
	pool := testdb.Open(t)
	q := repository.New(pool)
	ctx := context.Background()

	entries := []repository.InsertBlockListEntryParams{
		{Name: "John Smith", Type: "person", Reason: "SANCTIONS_LOW", Severity: 3},
		{Name: "Zed Corp", Type: "organization", Reason: "FRAUD", Severity: 10},
		{Name: "John Smith", Type: "person", Reason: "SANCTIONS_OFAC", Severity: 10},
		{Name: "Dormant", Type: "entity", Reason: "OLD", Severity: 9},
	}
	var dormant uuid.UUID
	for i := range entries {
		id := uuid.New()
		entries[i].ID = repository.ToPgUUID(id)
		entries[i].AddedBy = "tests"
		if entries[i].Name == "Dormant" {
			dormant = id
		}
		_, err := q.InsertBlockListEntry(ctx, entries[i])
		require.NoError(t, err)
	}

	n, err := q.DeactivateBlockListEntry(ctx, repository.ToPgUUID(dormant))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = q.DeactivateBlockListEntry(ctx, repository.ToPgUUID(dormant))
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := q.ListActiveBlockListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "John Smith", active[0].Name)
	assert.Equal(t, int32(10), active[0].Severity)
	assert.Equal(t, "Zed Corp", active[1].Name)
	assert.Equal(t, int32(3), active[2].Severity)
}

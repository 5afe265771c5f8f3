package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/harvestplace/backend/internal/infrastructure/persistence/models"
	"github.com/harvestplace/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxWriter_AppendsOnePendingEntryPerEvent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	order := newTestOrder(t)
	placed := trade.NewOrderPlacedEvent(order)

	w := NewOutboxWriter(db, NewEventSerializer())
	require.NoError(t, w.Append(ctx, placed))
	require.NoError(t, w.Append(ctx))

	repo := NewGormOutboxRepository(db)
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	entry := pending[0]
	assert.Equal(t, placed.EventID(), entry.EventID)
	assert.Equal(t, trade.EventTypeOrderPlaced, entry.EventType)
	assert.Equal(t, order.ID, entry.AggregateID)
	assert.Equal(t, shared.OutboxStatusPending, entry.Status)
	assert.Equal(t, shared.DefaultMaxRetries, entry.MaxRetries)
	assert.NotEmpty(t, entry.Payload)
}

func TestGormOutboxRepository_ClaimAndUpdate(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	repo := NewGormOutboxRepository(db)

	first := shared.NewOutboxEntry(testutil.NewTestEvent("A"), []byte(`{}`))
	second := shared.NewOutboxEntry(testutil.NewTestEvent("B"), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, first, second))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	// a processing entry cannot be claimed twice
	again, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	claimed[0].MarkSent()
	require.NoError(t, repo.Update(ctx, claimed[0]))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])

	var stored models.OutboxEntryModel
	require.NoError(t, db.First(&stored, "id = ?", first.ID).Error)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	repo := NewGormOutboxRepository(db)

	sent := shared.NewOutboxEntry(testutil.NewTestEvent("A"), []byte(`{}`))
	sent.MarkSent()
	pending := shared.NewOutboxEntry(testutil.NewTestEvent("B"), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, sent, pending))

	deleted, err := repo.DeleteSentBefore(ctx, sent.ProcessedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.OutboxEntryModel{}))
}

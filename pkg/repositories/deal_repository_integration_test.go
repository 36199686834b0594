package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
	"github.com/dealbase-inc/dealbase-engine/pkg/testhelpers"
)

func TestDealRepository_Integration(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	properties := repositories.NewPropertyRepository(engineDB.DB)
	deals := repositories.NewDealRepository(engineDB.DB)

	estimatedValue := 250000.0
	property := &models.Property{
		AddressLine1:   "500 Integration Way",
		City:           "Austin",
		State:          "TX",
		PostalCode:     "78701",
		EstimatedValue: &estimatedValue,
	}
	require.NoError(t, properties.Create(ctx, property))

	userID := uuid.New()
	deal := &models.Deal{
		UserID:     userID,
		PropertyID: property.ID,
		Status:     models.DealStatusNew,
	}
	require.NoError(t, deals.Create(ctx, deal))
	require.NotEqual(t, uuid.Nil, deal.ID)

	t.Run("owner reads the deal back", func(t *testing.T) {
		got, err := deals.GetOwned(ctx, deal.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, models.DealStatusNew, got.Status)
		assert.Equal(t, property.ID, got.PropertyID)
	})

	t.Run("another user cannot see it", func(t *testing.T) {
		_, err := deals.GetOwned(ctx, deal.ID, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("status update and history round-trip", func(t *testing.T) {
		tx, err := engineDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		locked, err := deals.GetOwnedForUpdate(ctx, tx, deal.ID, userID)
		require.NoError(t, err)

		require.NoError(t, deals.UpdateStatus(ctx, tx, deal.ID, models.DealStatusAnalyzing, nil))
		require.NoError(t, deals.InsertHistory(ctx, tx, &models.DealHistory{
			DealID:       deal.ID,
			FieldChanged: "status",
			OldValue:     string(locked.Status),
			NewValue:     string(models.DealStatusAnalyzing),
			ChangedBy:    userID,
		}))
		require.NoError(t, tx.Commit(ctx))

		history, err := deals.ListHistory(ctx, deal.ID, userID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "NEW", history[0].OldValue)
		assert.Equal(t, "ANALYZING", history[0].NewValue)
		assert.WithinDuration(t, time.Now(), history[0].CreatedAt, time.Minute)
	})

	t.Run("list is scoped to the owner", func(t *testing.T) {
		mine, err := deals.ListByUser(ctx, userID, 50, 0)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		theirs, err := deals.ListByUser(ctx, uuid.New(), 50, 0)
		require.NoError(t, err)
		assert.Empty(t, theirs)
	})
}

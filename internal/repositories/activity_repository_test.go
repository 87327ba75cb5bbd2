package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	mytesting "github.com/anonto42/warbler/internal/testing"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresActivityRepository(db)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateActivity(ctx, &models.Activity{Type: models.ActivityFollow, ActorID: 2, RecipientID: 1, CreatedAt: start}))
	require.NoError(t, repo.CreateActivity(ctx, &models.Activity{Type: models.ActivityLike, ActorID: 3, RecipientID: 1, MessageID: 9, CreatedAt: start.Add(time.Minute)}))
	require.NoError(t, repo.CreateActivity(ctx, &models.Activity{Type: models.ActivityFollow, ActorID: 1, RecipientID: 3}))

	activities, err := repo.GetByRecipientID(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.Equal(t, models.ActivityLike, activities[0].Type)
	require.Equal(t, uint(9), activities[0].MessageID)

	activities, err = repo.GetByRecipientID(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	require.NoError(t, repo.DeleteByUserID(ctx, 3))
	activities, err = repo.GetByRecipientID(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, uint(2), activities[0].ActorID)

	activities, err = repo.GetByRecipientID(ctx, 3, 10)
	require.NoError(t, err)
	require.Empty(t, activities)
}

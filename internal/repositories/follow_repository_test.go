package repositories_test

import (
	"context"
	"testing"

	"github.com/anonto42/warbler/internal/repositories"
	mytesting "github.com/anonto42/warbler/internal/testing"
	"github.com/stretchr/testify/require"
)

func TestFollow(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	ctx := context.Background()
	u1 := createUser(t, db, "u1")
	u2 := createUser(t, db, "u2")
	u3 := createUser(t, db, "u3")

	require.NoError(t, repo.CreateFollow(ctx, u1.ID, u2.ID))
	// following twice is a no-op
	require.NoError(t, repo.CreateFollow(ctx, u1.ID, u2.ID))
	require.NoError(t, repo.CreateFollow(ctx, u1.ID, u3.ID))
	require.NoError(t, repo.CreateFollow(ctx, u3.ID, u2.ID))

	following, err := repo.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.True(t, following)
	following, err = repo.IsFollowing(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	require.False(t, following)

	users, err := repo.GetFollowing(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u2", users[0].Username)

	users, err = repo.GetFollowers(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)

	count, err := repo.GetFollowersCount(ctx, u2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	count, err = repo.GetFollowingCount(ctx, u1.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	ids, err := repo.GetFollowingIDs(ctx, u1.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{u2.ID, u3.ID}, ids)
}

func TestUnfollow(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	ctx := context.Background()
	u1 := createUser(t, db, "u1")
	u2 := createUser(t, db, "u2")

	// unfollowing someone you do not follow is a no-op
	require.NoError(t, repo.DeleteFollow(ctx, u1.ID, u2.ID))

	require.NoError(t, repo.CreateFollow(ctx, u1.ID, u2.ID))
	require.NoError(t, repo.DeleteFollow(ctx, u1.ID, u2.ID))

	following, err := repo.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.False(t, following)
}

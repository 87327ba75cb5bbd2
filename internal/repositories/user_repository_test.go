package repositories_test

import (
	"context"
	"testing"

	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	mytesting "github.com/anonto42/warbler/internal/testing"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@email.com"}
	require.NoError(t, user.SetPassword("password"))
	require.NoError(t, repositories.NewPostgresUserRepository(db).CreateUser(context.Background(), user))
	return user
}

func TestCreateUser(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresUserRepository(db)
	ctx := context.Background()

	user := createUser(t, db, "u1")
	require.NotZero(t, user.ID)
	require.Equal(t, models.DefaultImageURL, user.ImageURL)
	require.Equal(t, models.DefaultHeaderImageURL, user.HeaderImageURL)

	found, err := repo.GetUserByUsername(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
	require.True(t, found.CheckPassword("password"))
	require.Nil(t, found.FirebaseUID)

	found, err = repo.GetUserByEmail(ctx, "u1@email.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
}

func TestCreateUserDuplicates(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresUserRepository(db)
	ctx := context.Background()
	createUser(t, db, "u1")

	err := repo.CreateUser(ctx, &models.User{Username: "u1", Email: "other@email.com", Password: "x"})
	require.ErrorIs(t, err, repositories.ErrUsernameTaken)

	err = repo.CreateUser(ctx, &models.User{Username: "other", Email: "u1@email.com", Password: "x"})
	require.ErrorIs(t, err, repositories.ErrEmailTaken)

	users, err := repo.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUsersWithoutFirebaseUIDDoNotCollide(t *testing.T) {
	db := mytesting.NewDB(t)
	createUser(t, db, "u1")
	createUser(t, db, "u2")

	uid := "firebase-uid"
	repo := repositories.NewPostgresUserRepository(db)
	u3 := &models.User{Username: "u3", Email: "u3@email.com", Password: "x", FirebaseUID: &uid}
	require.NoError(t, repo.CreateUser(context.Background(), u3))

	found, err := repo.GetUserByFirebaseUID(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, u3.ID, found.ID)
}

func TestGetUserNotFound(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresUserRepository(db)

	_, err := repo.GetUserByID(context.Background(), 42)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = repo.GetUserByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	db := mytesting.NewDB(t)
	createUser(t, db, "alice")
	createUser(t, db, "Malice")
	createUser(t, db, "bob")

	users, err := repositories.NewPostgresUserRepository(db).SearchUsers(context.Background(), "LIC")
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestUpdateUser(t *testing.T) {
	db := mytesting.NewDB(t)
	repo := repositories.NewPostgresUserRepository(db)
	ctx := context.Background()
	u1 := createUser(t, db, "u1")
	createUser(t, db, "u2")

	u1.Bio = "hello"
	u1.Location = "Oslo"
	require.NoError(t, repo.UpdateUser(ctx, u1))

	found, err := repo.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", found.Bio)
	require.Equal(t, "Oslo", found.Location)

	found.Username = "u2"
	require.ErrorIs(t, repo.UpdateUser(ctx, found), repositories.ErrUsernameTaken)

	found.Username = "u1"
	found.Email = "u2@email.com"
	require.ErrorIs(t, repo.UpdateUser(ctx, found), repositories.ErrEmailTaken)
}

func TestDeleteUserCascades(t *testing.T) {
	db := mytesting.NewDB(t)
	ctx := context.Background()
	users := repositories.NewPostgresUserRepository(db)
	messages := repositories.NewPostgresMessageRepository(db)
	follows := repositories.NewPostgresFollowRepository(db)
	likes := repositories.NewPostgresLikeRepository(db)

	u1 := createUser(t, db, "u1")
	u2 := createUser(t, db, "u2")

	m1 := &models.Message{Text: "m1-text", UserID: u1.ID}
	m2 := &models.Message{Text: "m2-text", UserID: u2.ID}
	require.NoError(t, messages.CreateMessage(ctx, m1))
	require.NoError(t, messages.CreateMessage(ctx, m2))

	require.NoError(t, follows.CreateFollow(ctx, u1.ID, u2.ID))
	require.NoError(t, follows.CreateFollow(ctx, u2.ID, u1.ID))
	require.NoError(t, likes.CreateLike(ctx, u1.ID, m2.ID))
	require.NoError(t, likes.CreateLike(ctx, u2.ID, m1.ID))

	require.NoError(t, users.DeleteUser(ctx, u1.ID))

	_, err := users.GetUserByID(ctx, u1.ID)
	require.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = messages.GetMessageByID(ctx, m1.ID)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	count, err := follows.GetFollowersCount(ctx, u2.ID)
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = follows.GetFollowingCount(ctx, u2.ID)
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = likes.GetLikesCountByUserID(ctx, u2.ID)
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = likes.GetLikesCountByMessageID(ctx, m2.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	// u2 and their message are untouched
	_, err = messages.GetMessageByID(ctx, m2.ID)
	require.NoError(t, err)

	require.ErrorIs(t, users.DeleteUser(ctx, u1.ID), repositories.ErrNotFound)
}

// raceInsert makes the next user insert collide with a row written after checkUnique ran
func raceInsert(t *testing.T, db *gorm.DB, username, email string) {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:begin_transaction").Register("test:race_insert", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Model.(*models.User); !ok || fired {
			return
		}
		fired = true
		res := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
			username, email, "x")
		require.NoError(t, res.Error)
	})
	require.NoError(t, err)
}

func TestCreateUserRaceReportsColumn(t *testing.T) {
	ctx := context.Background()

	db := mytesting.NewDB(t)
	raceInsert(t, db, "someone", "u1@email.com")
	err := repositories.NewPostgresUserRepository(db).CreateUser(ctx, &models.User{Username: "u1", Email: "u1@email.com", Password: "x"})
	require.ErrorIs(t, err, repositories.ErrEmailTaken)

	db = mytesting.NewDB(t)
	raceInsert(t, db, "u1", "someone@email.com")
	err = repositories.NewPostgresUserRepository(db).CreateUser(ctx, &models.User{Username: "u1", Email: "u1@email.com", Password: "x"})
	require.ErrorIs(t, err, repositories.ErrUsernameTaken)
}

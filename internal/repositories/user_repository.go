package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/warbler/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint) error
}

// PostgresUserRepository implements UserRepository on top of gorm.
// Despite the name it works with every dialect the server supports.
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts user. Duplicate usernames or emails return ErrUsernameTaken / ErrEmailTaken.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkUnique(ctx, user); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return r.takenError(ctx, user, fmt.Errorf("create user: %w", err))
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by primary key
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by exact username
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by exact email
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByFirebaseUID retrieves a user linked to a Firebase account
func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUsers retrieves all users ordered by username
func (r *PostgresUserRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers returns users whose username contains query, case-insensitively
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	if err := r.db.WithContext(ctx).Where("LOWER(username) LIKE ?", pattern).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser saves every field of user
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkUnique(ctx, user); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return r.takenError(ctx, user, fmt.Errorf("update user %d: %w", user.ID, err))
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return nil
}

// DeleteUser removes the user together with their messages, likes and follows.
// The rows are deleted explicitly so the cascade does not depend on the dialect's FK support.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownMessages := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", id)

		if err := tx.Where("user_id = ? OR message_id IN (?)", id, ownMessages).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Where("user_being_followed_id = ? OR user_following_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("delete follows: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// takenError names the column a concurrent write took between checkUnique and
// the insert. gorm's translated ErrDuplicatedKey does not carry the constraint,
// so the check is repeated now that the other row is visible. Violations on
// other columns (firebase_uid) return err unchanged.
func (r *PostgresUserRepository) takenError(ctx context.Context, user *models.User, err error) error {
	if taken := r.checkUnique(ctx, user); errors.Is(taken, ErrUsernameTaken) || errors.Is(taken, ErrEmailTaken) {
		return taken
	}
	return err
}

// checkUnique reports which unique column user would collide on, ignoring user's own row
func (r *PostgresUserRepository) checkUnique(ctx context.Context, user *models.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", user.Username, user.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", user.Email, user.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

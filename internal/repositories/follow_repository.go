package repositories

import (
	"context"

	"github.com/anonto42/warbler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followedID uint) error
	DeleteFollow(ctx context.Context, followerID, followedID uint) error
	IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error)
	GetFollowers(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowing(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
	GetFollowingCount(ctx context.Context, userID uint) (int64, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

// PostgresFollowRepository implements FollowRepository on top of gorm
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// CreateFollow makes followerID follow followedID. Following twice is a no-op.
func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, followerID, followedID uint) error {
	follow := &models.Follow{UserBeingFollowedID: followedID, UserFollowingID: followerID}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error
}

// DeleteFollow removes the relationship if it exists
func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, followerID, followedID uint) error {
	return r.db.WithContext(ctx).
		Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followedID).
		Delete(&models.Follow{}).Error
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresFollowRepository) GetFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN (?)",
		r.db.Model(&models.Follow{}).Select("user_following_id").Where("user_being_followed_id = ?", userID),
	).Order("username").Find(&users).Error
	return users, err
}

func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN (?)",
		r.db.Model(&models.Follow{}).Select("user_being_followed_id").Where("user_following_id = ?", userID),
	).Order("username").Find(&users).Error
	return users, err
}

func (r *PostgresFollowRepository) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("user_being_followed_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresFollowRepository) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("user_following_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("user_following_id = ?", userID).Pluck("user_being_followed_id", &ids).Error
	return ids, err
}

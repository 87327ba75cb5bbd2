package repositories

import (
	"context"

	"github.com/anonto42/warbler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, userID, messageID uint) error
	DeleteLike(ctx context.Context, userID, messageID uint) error
	HasUserLikedMessage(ctx context.Context, userID, messageID uint) (bool, error)
	GetLikedMessageIDs(ctx context.Context, userID uint) ([]uint, error)
	GetLikedMessages(ctx context.Context, userID uint) ([]models.Message, error)
	GetLikesCountByUserID(ctx context.Context, userID uint) (int64, error)
	GetLikesCountByMessageID(ctx context.Context, messageID uint) (int64, error)
}

// PostgresLikeRepository implements LikeRepository on top of gorm
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike records the like. Liking twice is a no-op.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, userID, messageID uint) error {
	like := &models.Like{UserID: userID, MessageID: messageID}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like).Error
}

// DeleteLike removes the like if present
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID, messageID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&models.Like{}).Error
}

// HasUserLikedMessage checks if a user has liked a specific message
func (r *PostgresLikeRepository) HasUserLikedMessage(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ? AND message_id = ?", userID, messageID).Count(&count).Error
	return count > 0, err
}

// GetLikedMessageIDs returns the ids of every message userID liked
func (r *PostgresLikeRepository) GetLikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Pluck("message_id", &ids).Error
	return ids, err
}

// GetLikedMessages returns the messages userID liked, newest first
func (r *PostgresLikeRepository) GetLikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).Preload("User").
		Where("id IN (?)", r.db.Model(&models.Like{}).Select("message_id").Where("user_id = ?", userID)).
		Order("timestamp DESC").Order("id DESC").
		Find(&messages).Error
	return messages, err
}

func (r *PostgresLikeRepository) GetLikesCountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresLikeRepository) GetLikesCountByMessageID(ctx context.Context, messageID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("message_id = ?", messageID).Count(&count).Error
	return count, err
}

package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/warbler/internal/models"
	"gorm.io/gorm"
)

// TimelineLimit caps the number of messages shown on the home page and profiles
const TimelineLimit = 100

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, id uint) (*models.Message, error)
	GetMessagesByUserID(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	GetTimeline(ctx context.Context, userIDs []uint, limit int) ([]models.Message, error)
	GetMessagesCount(ctx context.Context, userID uint) (int64, error)
	DeleteMessage(ctx context.Context, id uint) error
}

// PostgresMessageRepository implements MessageRepository on top of gorm
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// CreateMessage inserts message and loads its author
func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(message).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return r.db.WithContext(ctx).First(&message.User, message.UserID).Error
}

// GetMessageByID retrieves a message with its author
func (r *PostgresMessageRepository) GetMessageByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("User").First(&message, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// GetMessagesByUserID returns a user's newest messages first
func (r *PostgresMessageRepository) GetMessagesByUserID(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).Preload("User").
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// GetTimeline returns the newest messages written by any of userIDs
func (r *PostgresMessageRepository) GetTimeline(ctx context.Context, userIDs []uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	if len(userIDs) == 0 {
		return messages, nil
	}
	err := r.db.WithContext(ctx).Preload("User").
		Where("user_id IN ?", userIDs).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// GetMessagesCount returns how many messages a user wrote
func (r *PostgresMessageRepository) GetMessagesCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// DeleteMessage removes a message and the likes pointing at it
func (r *PostgresMessageRepository) DeleteMessage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes of message %d: %w", id, err)
		}
		res := tx.Delete(&models.Message{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete message %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

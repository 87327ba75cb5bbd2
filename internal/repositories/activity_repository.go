package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/warbler/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// ActivityRepository stores notifications about follows and likes
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetByRecipientID(ctx context.Context, recipientID uint, limit int64) ([]models.Activity, error)
	DeleteByUserID(ctx context.Context, userID uint) error
}

type postgresActivityRepository struct {
	db *gorm.DB
}

// NewPostgresActivityRepository keeps activity next to the rest of the relational data
func NewPostgresActivityRepository(db *gorm.DB) ActivityRepository {
	return &postgresActivityRepository{db: db}
}

func (r *postgresActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *postgresActivityRepository) GetByRecipientID(ctx context.Context, recipientID uint, limit int64) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id DESC").
		Limit(int(limit)).
		Find(&activities).Error
	return activities, err
}

func (r *postgresActivityRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("actor_id = ? OR recipient_id = ?", userID, userID).Delete(&models.Activity{}).Error
}

// MongoActivityRepository implements ActivityRepository for MongoDB
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoActivityRepository
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{collection: db.Collection("activity")}
}

// EnsureIndexes creates the recipient/time index used by GetByRecipientID
func (r *MongoActivityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

// CreateActivity inserts a new activity document
func (r *MongoActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetByRecipientID returns the newest activities addressed to recipientID
func (r *MongoActivityRepository) GetByRecipientID(ctx context.Context, recipientID uint, limit int64) ([]models.Activity, error) {
	var activities []models.Activity
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"recipient_id": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// DeleteByUserID removes every activity the user took part in
func (r *MongoActivityRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"actor_id": userID},
		bson.M{"recipient_id": userID},
	}})
	return err
}

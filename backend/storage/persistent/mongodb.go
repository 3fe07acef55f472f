package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jghoshh/trailhead/models"
)

const (
	usersCollection    = "users"
	tokensCollection   = "refreshTokens"
	progressCollection = "userProgress"
	eventsCollection   = "analytics"
)

// MongoStorage is the MongoDB implementation of StorageInterface.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes the connection and creates the indexes the system
// relies on: unique users by email and username, and an event-log index on
// user id.
func (m *MongoStorage) Connect(dbName, uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	users := m.collection(usersCollection)
	for _, field := range []string{"email", "username"} {
		indexModel := mongo.IndexModel{
			Keys:    bson.M{field: 1},
			Options: options.Index().SetUnique(true),
		}
		if _, err := users.Indexes().CreateOne(ctx, indexModel); err != nil {
			return fmt.Errorf("error creating %s index: %v", field, err)
		}
	}

	events := m.collection(eventsCollection)
	eventIndex := mongo.IndexModel{Keys: bson.M{"user_id": 1}}
	if _, err := events.Indexes().CreateOne(ctx, eventIndex); err != nil {
		return fmt.Errorf("error creating event index: %v", err)
	}

	return nil
}

func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

func (m *MongoStorage) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	result, err := m.collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return user, nil
}

func (m *MongoStorage) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	result := m.collection(usersCollection).FindOne(ctx, filter)
	user := &models.User{}
	if err := result.Decode(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *MongoStorage) UserCount(ctx context.Context, filter interface{}) (int64, error) {
	count, err := m.collection(usersCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (m *MongoStorage) AddRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	// One refresh token per user; a new sign-in replaces the previous one.
	_, err := m.collection(tokensCollection).DeleteMany(ctx, bson.M{"user_id": token.UserID})
	if err != nil {
		return err
	}
	_, err = m.collection(tokensCollection).InsertOne(ctx, token)
	return err
}

func (m *MongoStorage) FindRefreshToken(ctx context.Context, filter interface{}) (*models.RefreshToken, error) {
	result := m.collection(tokensCollection).FindOne(ctx, filter)
	token := &models.RefreshToken{}
	if err := result.Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func (m *MongoStorage) DeleteRefreshToken(ctx context.Context, filter interface{}) error {
	_, err := m.collection(tokensCollection).DeleteMany(ctx, filter)
	return err
}

// GetProgress is a point read of the user's progress document. A missing
// document is (nil, nil); a transport failure wraps ErrStoreUnavailable.
func (m *MongoStorage) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	result := m.collection(progressCollection).FindOne(ctx, bson.M{"_id": userID})
	record := &models.UserProgress{}
	if err := result.Decode(record); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading progress: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

// MergeProgress upserts the record's top-level fields without clobbering
// untouched ones. The analytics last_active and updated_at fields are set
// to the server's clock, and created_at only on first insert, mirroring
// store-managed server timestamps.
func (m *MongoStorage) MergeProgress(ctx context.Context, userID string, record *models.UserProgress) error {
	set := bson.M{
		"email":                         record.Email,
		"phases":                        record.Phases,
		"device_info":                   record.DeviceInfo,
		"analytics.total_tasks":         record.Analytics.TotalTasks,
		"analytics.completed_tasks":     record.Analytics.CompletedTasks,
		"analytics.total_subtasks":      record.Analytics.TotalSubtasks,
		"analytics.completed_subtasks":  record.Analytics.CompletedSubtasks,
		"analytics.progress_percentage": record.Analytics.ProgressPercentage,
	}
	if record.Location != nil {
		set["location"] = record.Location
	}
	update := bson.M{
		"$set": set,
		"$currentDate": bson.M{
			"analytics.last_active": true,
			"analytics.updated_at":  true,
		},
		"$setOnInsert": bson.M{
			"analytics.created_at": time.Now().UTC(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := m.collection(progressCollection).UpdateOne(ctx, bson.M{"_id": userID}, update, opts)
	if err != nil {
		return fmt.Errorf("%w: writing progress: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// WatchProgress opens a change stream scoped to the user's document and
// pushes every full-document snapshot to onChange. Delivery is at least
// once and includes the writer's own writes; the consumer filters.
func (m *MongoStorage) WatchProgress(ctx context.Context, userID string, onChange func(*models.UserProgress)) (func(), error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: userID}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := m.collection(progressCollection).Watch(streamCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: opening change stream: %v", ErrStoreUnavailable, err)
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			var change struct {
				FullDocument *models.UserProgress `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				log.Printf("decoding progress change: %v", err)
				continue
			}
			if change.FullDocument != nil {
				onChange(change.FullDocument)
			}
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			log.Printf("progress change stream closed: %v", err)
		}
	}()

	return cancel, nil
}

// AppendEvent inserts one event into the append-only analytics log. The
// timestamp falls back to the current time when the producer left it unset.
func (m *MongoStorage) AppendEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := m.collection(eventsCollection).InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("%w: appending event: %v", ErrStoreUnavailable, err)
	}
	return nil
}

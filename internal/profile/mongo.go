package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

const (
	usersCollection   = "users"
	mongoCloseTimeout = 5 * time.Second
)

// MongoStore keeps upload history inside the users collection, one array per
// collection under the uploads field.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

// NewMongoStore connects and pings the server. Call Close when done.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}, nil
}

// AddUpload appends record to uploads.<collection> on the user document.
func (ms *MongoStore) AddUpload(ctx context.Context, userID string, record model.UploadRecord) error {
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}
	update := bson.M{
		"$push": bson.M{"uploads." + record.FileType.Collection(): record},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := ms.users.UpdateOne(ctx, bson.M{"_id": userKey(userID)}, update)
	if err != nil {
		return fmt.Errorf("add upload for %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Uploads returns the user's upload history.
func (ms *MongoStore) Uploads(ctx context.Context, userID string) (model.UploadHistory, error) {
	var doc struct {
		Uploads model.UploadHistory `bson:"uploads"`
	}
	opts := options.FindOne().SetProjection(bson.M{"uploads": 1})
	err := ms.users.FindOne(ctx, bson.M{"_id": userKey(userID)}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.UploadHistory{}, ErrNotFound
	}
	if err != nil {
		return model.UploadHistory{}, fmt.Errorf("load uploads for %s: %w", userID, err)
	}
	return doc.Uploads, nil
}

// Close disconnects the client, bounded by a short timeout.
func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

// userKey matches user ids issued as ObjectID hex as well as plain strings.
func userKey(userID string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		return oid
	}
	return userID
}

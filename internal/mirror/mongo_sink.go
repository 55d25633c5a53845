package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoSink keeps the mirror in a MongoDB collection
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoSink connects and pings before returning
func NewMongoSink(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("mirror connected to mongo",
		zap.String("database", database),
		zap.String("collection", collection),
	)

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

func (s *MongoSink) Name() string { return "mongo" }

// Apply updates the document only while the stored version is lower. When a
// newer document already exists the filter misses, the upsert collides on
// _id and the record is reported as not applied.
func (s *MongoSink) Apply(ctx context.Context, rec domain.LegacyMaintenance) (bool, error) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to encode legacy record: %w", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return false, fmt.Errorf("failed to encode legacy record: %w", err)
	}
	delete(fields, "_id")

	filter := bson.M{"_id": rec.Key, "version": bson.M{"$lt": rec.Version}}
	_, err = s.collection.UpdateOne(ctx, filter, bson.M{"$set": fields}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

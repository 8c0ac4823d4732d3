package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wavecrest-planner/internal/store"
	"wavecrest-planner/models"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	return client, nil
}

// EnsureIndexes creates the query indexes for every planner collection.
// Index creation is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		store.IdeasCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "pillar", Value: 1}}},
		},
		store.ScriptsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "linked_idea_id", Value: 1}}},
			{Keys: bson.D{{Key: "session_date", Value: 1}}},
		},
		store.PostsCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "platform", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "source_script_id", Value: 1}}},
			{Keys: bson.D{{Key: "source_idea_id", Value: 1}}},
		},
		store.MetricsCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "post_id", Value: 1}}},
		},
		store.CompetitorsCollection: {
			{Keys: bson.D{{Key: "competitor_name", Value: 1}, {Key: "date", Value: 1}}},
		},
		store.TransitionsCollection: {
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// SeedPillars upserts the pillar catalogue.
func SeedPillars(ctx context.Context, db *mongo.Database) (int64, error) {
	col := db.Collection(store.PillarsCollection)
	var upserted int64
	for _, p := range models.PillarCatalogue {
		res, err := col.ReplaceOne(ctx, bson.M{"_id": p.Name}, p, options.Replace().SetUpsert(true))
		if err != nil {
			return upserted, fmt.Errorf("failed to seed pillar %s: %w", p.Name, err)
		}
		upserted += res.UpsertedCount + res.ModifiedCount
	}
	return upserted, nil
}

// CollectionCounts reports the document count of every planner collection.
func CollectionCounts(ctx context.Context, db *mongo.Database) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, name := range []string{
		store.IdeasCollection, store.ScriptsCollection, store.PostsCollection,
		store.MetricsCollection, store.CompetitorsCollection, store.TransitionsCollection,
		store.PillarsCollection,
	} {
		n, err := db.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

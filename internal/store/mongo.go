package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wavecrest-planner/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 10 * time.Second

// MongoSchema describes which document fields back a ListFilter for one
// collection.
type MongoSchema struct {
	DateField     string
	SortByDate    bool
	HasStatus     bool
	HasPillar     bool
	PlatformField string
	SourceFields  []string
}

var (
	IdeaSchema       = MongoSchema{DateField: "created_at", HasStatus: true, HasPillar: true}
	ScriptSchema     = MongoSchema{DateField: "session_date", HasStatus: true, HasPillar: true, SourceFields: []string{"linked_idea_id"}}
	PostSchema       = MongoSchema{DateField: "date", SortByDate: true, HasStatus: true, HasPillar: true, PlatformField: "platform", SourceFields: []string{"source_script_id", "source_idea_id"}}
	MetricSchema     = MongoSchema{DateField: "date", SortByDate: true, PlatformField: "platform", SourceFields: []string{"post_id"}}
	CompetitorSchema = MongoSchema{DateField: "date", SortByDate: true, SourceFields: []string{"competitor_name"}}
	TransitionSchema = MongoSchema{DateField: "at", SourceFields: []string{"entity_id"}}
)

// Collection names.
const (
	IdeasCollection       = "ideas"
	ScriptsCollection     = "scripts"
	PostsCollection       = "posts"
	MetricsCollection     = "metric_snapshots"
	CompetitorsCollection = "competitor_snapshots"
	TransitionsCollection = "transition_log"
	PillarsCollection     = "content_pillars"
)

// MongoCollection stores records as documents keyed by _id with a version
// field used for optimistic concurrency.
type MongoCollection[T models.Record[T]] struct {
	col    *mongo.Collection
	schema MongoSchema
}

func NewMongoCollection[T models.Record[T]](db *mongo.Database, name string, schema MongoSchema) *MongoCollection[T] {
	return &MongoCollection[T]{col: db.Collection(name), schema: schema}
}

// NewMongoEntities wires every planning collection to db.
func NewMongoEntities(db *mongo.Database) *Entities {
	return &Entities{
		Ideas:       NewMongoCollection[*models.Idea](db, IdeasCollection, IdeaSchema),
		Scripts:     NewMongoCollection[*models.Script](db, ScriptsCollection, ScriptSchema),
		Posts:       NewMongoCollection[*models.Post](db, PostsCollection, PostSchema),
		Metrics:     NewMongoCollection[*models.MetricSnapshot](db, MetricsCollection, MetricSchema),
		Competitors: NewMongoCollection[*models.CompetitorSnapshot](db, CompetitorsCollection, CompetitorSchema),
		Transitions: NewMongoCollection[*models.TransitionEvent](db, TransitionsCollection, TransitionSchema),
	}
}

func (c *MongoCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := rec.Clone()
	if doc.RecordID() == "" {
		doc.SetRecordID(NewID())
	}
	doc.SetRecordVersion(1)

	if _, err := c.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("create %s: %w", doc.RecordID(), ErrConflict)
		}
		return "", fmt.Errorf("failed to insert into %s: %w", c.col.Name(), err)
	}
	return doc.RecordID(), nil
}

func (c *MongoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rec T
	err := c.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read %s from %s: %w", id, c.col.Name(), err)
	}
	return rec, nil
}

func (c *MongoCollection[T]) Update(ctx context.Context, rec T) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var zero T
	id := rec.RecordID()
	expected := rec.RecordVersion()

	doc := rec.Clone()
	doc.SetRecordVersion(expected + 1)

	res, err := c.col.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, doc)
	if err != nil {
		return zero, fmt.Errorf("failed to update %s in %s: %w", id, c.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		n, err := c.col.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return zero, fmt.Errorf("failed to check %s in %s: %w", id, c.col.Name(), err)
		}
		if n == 0 {
			return zero, fmt.Errorf("update %s: %w", id, ErrNotFound)
		}
		return zero, fmt.Errorf("update %s at version %d: %w", id, expected, ErrConflict)
	}
	return doc, nil
}

func (c *MongoCollection[T]) List(ctx context.Context, f models.ListFilter) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sort := bson.D{{Key: "_id", Value: 1}}
	if c.schema.SortByDate {
		sort = bson.D{{Key: c.schema.DateField, Value: 1}, {Key: "_id", Value: 1}}
	}

	cursor, err := c.col.Find(ctx, c.schema.Filter(f), options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.col.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.col.Name(), err)
	}
	return out, nil
}

func (c *MongoCollection[T]) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := c.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", id, c.col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// Filter translates a ListFilter into a query document for this schema.
// Filter fields the schema does not carry are ignored, matching the
// in-memory Matches implementations.
func (s MongoSchema) Filter(f models.ListFilter) bson.M {
	filter := bson.M{}

	if s.HasStatus {
		status := bson.M{}
		if f.Status != "" {
			status["$eq"] = f.Status
		}
		if f.ExcludeStatus != "" {
			status["$ne"] = f.ExcludeStatus
		}
		if len(status) > 0 {
			filter["status"] = status
		}
	}
	if s.HasPillar && f.Pillar != "" {
		filter["pillar"] = f.Pillar
	}
	if s.PlatformField != "" && f.Platform != "" {
		filter[s.PlatformField] = f.Platform
	}
	if f.SourceID != "" && len(s.SourceFields) > 0 {
		if len(s.SourceFields) == 1 {
			filter[s.SourceFields[0]] = f.SourceID
		} else {
			or := bson.A{}
			for _, field := range s.SourceFields {
				or = append(or, bson.M{field: f.SourceID})
			}
			filter["$or"] = or
		}
	}
	if s.DateField != "" && (!f.From.IsZero() || !f.To.IsZero()) {
		date := bson.M{}
		if !f.From.IsZero() {
			date["$gte"] = models.DateOf(f.From)
		}
		if !f.To.IsZero() {
			date["$lt"] = models.DateOf(f.To).AddDate(0, 0, 1)
		}
		filter[s.DateField] = date
	}
	return filter
}

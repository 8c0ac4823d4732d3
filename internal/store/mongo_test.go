package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"wavecrest-planner/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestPostSchemaFilter(t *testing.T) {
	f := models.ListFilter{
		ExcludeStatus: "Skipped",
		Platform:      models.PlatformBoth,
		SourceID:      "script-1",
		From:          day("2025-06-01"),
		To:            day("2025-06-30"),
	}
	got := PostSchema.Filter(f)

	status, ok := got["status"].(bson.M)
	if !ok || status["$ne"] != "Skipped" {
		t.Fatalf("unexpected status clause %#v", got["status"])
	}
	if got["platform"] != models.PlatformBoth {
		t.Fatalf("unexpected platform clause %#v", got["platform"])
	}
	if or, ok := got["$or"].(bson.A); !ok || len(or) != 2 {
		t.Fatalf("expected source $or over two fields, got %#v", got["$or"])
	}
	date := got["date"].(bson.M)
	if !date["$lt"].(time.Time).Equal(day("2025-07-01")) {
		t.Fatalf("upper bound should be exclusive next day, got %v", date["$lt"])
	}
}

func TestIdeaSchemaIgnoresPlatform(t *testing.T) {
	got := IdeaSchema.Filter(models.ListFilter{Platform: models.PlatformInstagram, Status: "New"})
	if _, ok := got["platform"]; ok {
		t.Fatal("idea filter should not carry a platform clause")
	}
	if got["status"].(bson.M)["$eq"] != "New" {
		t.Fatalf("unexpected status clause %#v", got["status"])
	}
}

// Requires a reachable MongoDB; set MONGO_TEST_URI to run.
func TestMongoCollectionRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("planner_store_test_" + NewID()[:8])
	defer db.Drop(context.Background())

	col := NewMongoCollection[*models.Post](db, PostsCollection, PostSchema)
	id, err := col.Create(ctx, &models.Post{Date: day("2025-06-03"), Platform: models.PlatformInstagram, Status: models.PostPlanned})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := col.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stale := first.Clone()

	first.Caption = "updated"
	if _, err := col.Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := col.Update(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	list, err := col.List(ctx, models.MonthFilter(models.Month{Year: 2025, Month: time.June}))
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v (%d results)", err, len(list))
	}

	if err := col.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := col.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

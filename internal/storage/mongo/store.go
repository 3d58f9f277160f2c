// Package mongo implements the storemodel.Store contract over MongoDB.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"soltrace/internal/pipeline"
	"soltrace/internal/storage/storemodel"
)

// eventDocument is the on-disk shape of a persisted event.
type eventDocument struct {
	Slot          int64     `bson:"slot"`
	Signature     string    `bson:"signature"`
	ProgramID     string    `bson:"program_id"`
	EventName     string    `bson:"event_name"`
	Discriminator string    `bson:"discriminator"`
	Data          bson.M    `bson:"data"`
	Timestamp     time.Time `bson:"timestamp"`
}

// Store wraps a MongoDB "events" collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open connects to databaseURL and selects the database named by its path,
// defaulting to "soltrace" if the URL carries none.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	dbName, err := databaseNameFromURL(databaseURL)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection("events")
	return &Store{client: client, collection: collection}, nil
}

// databaseNameFromURL extracts the database name from a mongodb:// or
// mongodb+srv:// URL's path, defaulting to "soltrace" if none is given.
func databaseNameFromURL(databaseURL string) (string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse mongodb url: %w", err)
	}
	dbName := strings.Trim(parsed.Path, "/")
	if dbName == "" {
		dbName = "soltrace"
	}
	return dbName, nil
}

// Initialize creates the indexes the query methods rely on. Safe to call
// repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "signature", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slot", Value: 1}}},
		{Keys: bson.D{{Key: "program_id", Value: 1}}},
		{Keys: bson.D{{Key: "event_name", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create mongodb indexes: %w", err)
	}
	return nil
}

// InsertEvent persists e keyed by raw.Signature. A duplicate signature is a
// silent no-op: it returns (0, nil).
func (s *Store) InsertEvent(ctx context.Context, e pipeline.DecodedEvent, raw pipeline.RawEvent) (int, error) {
	doc := eventDocument{
		Slot:          int64(raw.Slot),
		Signature:     raw.Signature,
		ProgramID:     raw.ProgramID,
		EventName:     e.EventName,
		Discriminator: e.Discriminator,
		Data:          bson.M(e.Data),
		Timestamp:     raw.Timestamp.UTC(),
	}

	_, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return 1, nil
}

// EventExists reports whether signature has already been recorded.
func (s *Store) EventExists(ctx context.Context, signature string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"signature": signature})
	if err != nil {
		return false, fmt.Errorf("count events: %w", err)
	}
	return count > 0, nil
}

// LatestSlot returns the highest recorded slot for programID.
func (s *Store) LatestSlot(ctx context.Context, programID string) (uint64, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "slot", Value: -1}})
	var doc eventDocument
	err := s.collection.FindOne(ctx, bson.M{"program_id": programID}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query latest slot: %w", err)
	}
	return uint64(doc.Slot), true, nil
}

// EventsByProgram returns every recorded event for programID, newest slot first.
func (s *Store) EventsByProgram(ctx context.Context, programID string) ([]storemodel.EventRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "slot", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"program_id": programID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query events by program: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeEventCursor(ctx, cursor)
}

// EventsByName returns every recorded event with the given event name,
// newest slot first.
func (s *Store) EventsByName(ctx context.Context, eventName string) ([]storemodel.EventRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "slot", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"event_name": eventName}, opts)
	if err != nil {
		return nil, fmt.Errorf("query events by name: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeEventCursor(ctx, cursor)
}

// EventsBySlotRange returns every recorded event within [startSlot, endSlot],
// ordered by slot ascending.
func (s *Store) EventsBySlotRange(ctx context.Context, startSlot, endSlot uint64) ([]storemodel.EventRecord, error) {
	filter := bson.M{"slot": bson.M{"$gte": int64(startSlot), "$lte": int64(endSlot)}}
	opts := options.Find().SetSort(bson.D{{Key: "slot", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query events by slot range: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeEventCursor(ctx, cursor)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func decodeEventCursor(ctx context.Context, cursor *mongo.Cursor) ([]storemodel.EventRecord, error) {
	var records []storemodel.EventRecord
	for cursor.Next(ctx) {
		var doc eventDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event document: %w", err)
		}
		records = append(records, storemodel.EventRecord{
			Slot:          uint64(doc.Slot),
			Signature:     doc.Signature,
			ProgramID:     doc.ProgramID,
			EventName:     doc.EventName,
			Discriminator: doc.Discriminator,
			Data:          map[string]interface{}(doc.Data),
			Timestamp:     doc.Timestamp,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate event cursor: %w", err)
	}
	return records, nil
}

var _ storemodel.Store = (*Store)(nil)

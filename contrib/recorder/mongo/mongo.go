// Package mongo records served exchanges in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/remote"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds MongoDB connection configuration
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:        "mongodb://localhost:27017",
		Database:   "remote_llm",
		Collection: "exchanges",
	}
}

// Recorder implements remote.Recorder using MongoDB
type Recorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ remote.Recorder = (*Recorder)(nil)

// document is the stored form of an exchange.
type document struct {
	ID         string      `bson:"_id"`
	LLMType    string      `bson:"llm_type"`
	Prompts    []string    `bson:"prompts"`
	Stop       []string    `bson:"stop"`
	Result     []llm.Batch `bson:"generations"`
	Path       string      `bson:"path"`
	DurationMS int64       `bson:"duration_ms"`
	CreatedAt  time.Time   `bson:"created_at"`
}

func toDocument(ex *remote.Exchange) (*document, error) {
	if ex == nil {
		return nil, fmt.Errorf("%w: exchange cannot be nil", errorskg.ErrInvalidInput)
	}
	doc := &document{
		ID:         ex.ID,
		LLMType:    ex.LLMType,
		Prompts:    ex.Prompts,
		Stop:       ex.Stop,
		Path:       ex.Path,
		DurationMS: ex.Duration.Milliseconds(),
		CreatedAt:  ex.CreatedAt,
	}
	if ex.Result != nil {
		doc.Result = ex.Result.Generations
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("ex:%d", time.Now().UnixNano())
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return doc, nil
}

func (d *document) exchange() *remote.Exchange {
	return &remote.Exchange{
		ID:        d.ID,
		LLMType:   d.LLMType,
		Prompts:   d.Prompts,
		Stop:      d.Stop,
		Result:    &llm.Result{Generations: d.Result},
		Path:      d.Path,
		Duration:  time.Duration(d.DurationMS) * time.Millisecond,
		CreatedAt: d.CreatedAt,
	}
}

// New connects to MongoDB and creates the recorder indexes.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	r := &Recorder{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := r.createIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return r, nil
}

func (r *Recorder) createIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "llm_type", Value: 1}}},
	})
	return err
}

// Record inserts one exchange.
func (r *Recorder) Record(ctx context.Context, ex *remote.Exchange) error {
	doc, err := toDocument(ex)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// Get returns one exchange by id.
func (r *Recorder) Get(ctx context.Context, id string) (*remote.Exchange, error) {
	var doc document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("exchange %q: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return doc.exchange(), nil
}

// Recent returns up to limit exchanges, newest first. An empty llmType
// matches every backend.
func (r *Recorder) Recent(ctx context.Context, llmType string, limit int64) ([]*remote.Exchange, error) {
	filter := bson.M{}
	if llmType != "" {
		filter["llm_type"] = llmType
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode exchanges: %w", err)
	}
	out := make([]*remote.Exchange, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].exchange())
	}
	return out, nil
}

// Count returns the number of stored exchanges.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// Clear removes every stored exchange.
func (r *Recorder) Clear(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Close disconnects from MongoDB.
func (r *Recorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

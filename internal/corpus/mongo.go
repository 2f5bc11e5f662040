package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ashahq/sessionscout/internal/models"
)

// MongoConfig configures the MongoDB corpus adapter.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Mongo reads session records from a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Corpus = (*Mongo)(nil)

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w: %w", ErrUnavailable, err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AllSessions returns every session in the collection, normalized.
// Documents that fail to decode are skipped, not fatal.
func (m *Mongo) AllSessions(ctx context.Context) ([]models.Session, error) {
	cursor, err := m.coll.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w: %w", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	for cursor.Next(ctx) {
		var raw rawSession
		if err := cursor.Decode(&raw); err != nil {
			slog.Warn("skipping undecodable session document", "error", err)
			continue
		}
		sessions = append(sessions, normalize(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// RecentSessions returns up to limit sessions, most recent first. Ordering
// happens after normalization since stored dates are not uniformly typed.
func (m *Mongo) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	sessions, err := m.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	sortRecent(sessions)
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

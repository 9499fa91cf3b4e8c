package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollection  = "bookings"
	UsersCollection     = "users"
	AdminsCollection    = "admins"
	AuditLogsCollection = "audit_logs"
)

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Database() *mongo.Database
	EnsureIndexes(ctx context.Context) error
	Close() error
}

type service struct {
	db   *mongo.Client
	name string
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, name string) (Service, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &service{db: client, name: name}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"message": "db down",
		}
	}

	return map[string]string{
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Database() *mongo.Database {
	return s.db.Database(s.name)
}

func (s *service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the application relies on for correctness.
// The bookings slot index is what makes double booking impossible: it requires
// MongoDB 6.0+ for $in inside a partial filter expression.
func (s *service) EnsureIndexes(ctx context.Context) error {
	db := s.Database()

	specs := map[string][]mongo.IndexModel{
		BookingsCollection: {
			{
				Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
				Options: options.Index().
					SetName("uniq_active_slot").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"pending", "confirmed"}}}),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		UsersCollection: {
			{
				Keys: bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().
					SetName("uniq_phone").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
			},
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().
					SetName("uniq_email").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
			},
		},
		AdminsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
		},
		AuditLogsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			log.Error().Err(err).Str("collection", collection).Msg("Failed to create indexes")
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
		log.Debug().Str("collection", collection).Int("count", len(models)).Msg("Indexes ensured")
	}
	return nil
}

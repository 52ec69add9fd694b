// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is one server-side session. Data is the signed, encoded value map
// produced by auth.ServerStore; this store never interprets it.
type Record struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps sessions in MongoDB. It implements auth.SessionBackend.
type Store struct {
	c *mongo.Collection
}

var _ auth.SessionBackend = (*Store)(nil)

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// EnsureIndexes creates the TTL index that lets MongoDB expire sessions.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("idx_sessions_ttl").SetExpireAfterSeconds(0),
	})
	return err
}

// Load returns the data for a live session, or auth.ErrSessionNotFound.
// The TTL monitor runs about once a minute, so expiry is also checked here.
func (s *Store) Load(ctx context.Context, id string) (string, error) {
	var rec Record
	err := s.c.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return "", auth.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return rec.Data, nil
}

// Save upserts a session.
func (s *Store) Save(ctx context.Context, id, data string, expiresAt time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"data":       data,
			"expires_at": expiresAt,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpired removes sessions past their expiry and returns how many
// were removed. Called by the session cleanup worker.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of stored sessions, live or not.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

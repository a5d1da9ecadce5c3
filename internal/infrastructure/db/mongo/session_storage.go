package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace/storefront/internal/core/session"
)

const sessionCollection = "sessions"

// SessionStorage keeps one document per visitor. Each write is a single
// upserting update, so the two fields change atomically per call.
type SessionStorage struct {
	col *mongo.Collection
	ttl time.Duration
	now func() time.Time
}

var _ session.Storage = (*SessionStorage)(nil)

type sessionDoc struct {
	ID          string    `bson:"_id"`
	AccessToken string    `bson:"access_token,omitempty"`
	User        string    `bson:"user,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func NewSessionStorage(db *mongo.Database, ttl time.Duration) *SessionStorage {
	return &SessionStorage{col: db.Collection(sessionCollection), ttl: ttl, now: time.Now}
}

// EnsureIndexes creates the TTL index that expires idle sessions.
func (s *SessionStorage) EnsureIndexes(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("session ttl index: %w", err)
	}
	return nil
}

func (s *SessionStorage) Load(ctx context.Context, sid string) (session.Record, error) {
	var doc sessionDoc
	err := s.col.FindOne(ctx, bson.M{"_id": sid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return session.Record{}, nil
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("session load: %w", err)
	}
	rec := session.Record{Token: doc.AccessToken}
	if doc.User != "" {
		rec.User = []byte(doc.User)
	}
	return rec, nil
}

func (s *SessionStorage) SaveToken(ctx context.Context, sid, sealedToken string) error {
	return s.save(ctx, sid, "access_token", sealedToken)
}

func (s *SessionStorage) SaveUser(ctx context.Context, sid string, user []byte) error {
	return s.save(ctx, sid, "user", string(user))
}

func (s *SessionStorage) save(ctx context.Context, sid, field, value string) error {
	update := bson.M{"$set": bson.M{"updated_at": s.now()}}
	if value == "" {
		update["$unset"] = bson.M{field: ""}
	} else {
		update["$set"].(bson.M)[field] = value
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": sid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("session save %s: %w", field, err)
	}
	return nil
}

func (s *SessionStorage) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}

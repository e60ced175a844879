package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/messenger-server/internal/store"
)

var _ store.Store = (*MongoStore)(nil)

const disconnectTimeout = 5 * time.Second

// document is the stored shape of a message; Mongo assigns the ObjectID.
type document struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	store.Message `bson:",inline"`
}

// MongoStore implements store.Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	clock  *store.Clock
}

// Open connects to uri, verifies the connection and ensures the room index exists.
func Open(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		clock:  store.NewClock(nil),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create chatId index: %w", err)
	}
	return nil
}

// SaveMessage inserts a message document.
func (s *MongoStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	s.clock.Assign(msg)

	res, err := s.coll.InsertOne(ctx, document{Message: *msg})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return nil
}

// ListMessages retrieves all messages of a room, oldest first.
func (s *MongoStore) ListMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]store.Message, 0, len(docs))
	for _, d := range docs {
		msg := d.Message
		msg.ID = d.ID.Hex()
		messages = append(messages, msg)
	}
	return messages, nil
}

// ClearRoom deletes every message of a room.
func (s *MongoStore) ClearRoom(ctx context.Context, chatID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"chatId": chatID}); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// Drop removes the whole collection. Tests use it to start from a clean slate.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/toeicquiz/backend/internal/id"
)

// MongoStore maps each logical collection onto a MongoDB collection, with
// the document id stored as _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects and pings the server before returning.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, collection, docID string) (Snapshot, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": docID}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return bsonSnapshot(docID, raw), nil
}

func (s *MongoStore) Set(ctx context.Context, collection, docID string, doc any) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	fields := bson.M{}
	if err := bson.Unmarshal(data, &fields); err != nil {
		return err
	}
	fields["_id"] = docID

	_, err = s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": docID},
		fields,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Delete(ctx context.Context, collection, docID string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": docID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	docID := id.GenerateID()
	if err := s.Set(ctx, collection, docID, doc); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *MongoStore) Where(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	return s.find(ctx, collection, bson.M{field: value})
}

func (s *MongoStore) find(ctx context.Context, collection string, filter bson.M) ([]Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Snapshot
	for cursor.Next(ctx) {
		raw := make(bson.Raw, len(cursor.Current))
		copy(raw, cursor.Current)

		docID, _ := raw.Lookup("_id").StringValueOK()
		out = append(out, bsonSnapshot(docID, raw))
	}
	return out, cursor.Err()
}

func bsonSnapshot(docID string, raw bson.Raw) Snapshot {
	return Snapshot{
		ID: docID,
		decode: func(v any) error {
			return bson.Unmarshal(raw, v)
		},
	}
}

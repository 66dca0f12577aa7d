package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore はコレクションごとにMongoDBのコレクションを使う。_idがドキュメントID。
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// よく引くフィールドにインデックスを張る
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		docstore.CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		docstore.CollectionShops: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		docstore.CollectionOrders: {
			{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) docstore.Result[docstore.Document] {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id))
	}
	if err != nil {
		return docstore.Fail[docstore.Document](fmt.Errorf("failed to get document: %w", err))
	}
	return toResult(m)
}

func (s *MongoStore) List(ctx context.Context, collection string, filters ...docstore.Filter) docstore.Result[[]docstore.Document] {
	filter := bson.M{}
	for _, f := range filters {
		filter[f.Field] = f.Value
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return docstore.Fail[[]docstore.Document](fmt.Errorf("failed to list documents: %w", err))
	}
	defer cur.Close(ctx)

	out := []docstore.Document{}
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return docstore.Fail[[]docstore.Document](fmt.Errorf("failed to decode document: %w", err))
		}
		doc, err := toDocument(m)
		if err != nil {
			return docstore.Fail[[]docstore.Document](err)
		}
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return docstore.Fail[[]docstore.Document](err)
	}
	return docstore.OK(out, "")
}

func (s *MongoStore) FindOne(ctx context.Context, collection, field, value string) docstore.Result[docstore.Document] {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{field: value}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s=%s", docstore.ErrNotFound, collection, field, value))
	}
	if err != nil {
		return docstore.Fail[docstore.Document](fmt.Errorf("failed to find document: %w", err))
	}
	return toResult(m)
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data any) docstore.Result[docstore.Document] {
	m, err := toBSON(data)
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}
	id = docstore.EnsureID(id)
	m["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, collection, id))
		}
		return docstore.Fail[docstore.Document](fmt.Errorf("failed to create document: %w", err))
	}
	return toResult(m)
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, data any) docstore.Result[docstore.Document] {
	m, err := toBSON(data)
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}
	m["_id"] = id

	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m)
	if err != nil {
		return docstore.Fail[docstore.Document](fmt.Errorf("failed to update document: %w", err))
	}
	if res.MatchedCount == 0 {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id))
	}
	return toResult(m)
}

// JSON本体をbson.Mにする（_idは呼び出し側で入れる）
func toBSON(data any) (bson.M, error) {
	raw, err := docstore.Encode(data)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &m); err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	return m, nil
}

func toDocument(m bson.M) (docstore.Document, error) {
	id, _ := m["_id"].(string)

	body := bson.M{}
	for k, v := range m {
		if k != "_id" {
			body[k] = v
		}
	}
	raw, err := bson.MarshalExtJSON(body, false, false)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	return docstore.Document{ID: id, Data: raw}, nil
}

func toResult(m bson.M) docstore.Result[docstore.Document] {
	doc, err := toDocument(m)
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}
	return docstore.OK(doc, doc.ID)
}

var _ docstore.Store = (*MongoStore)(nil)

package mongodoc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reelscribe/internal/docstore"
)

// Store is a document store backed by MongoDB. Each logical collection maps to
// a Mongo collection in the configured database; workspace scoping is encoded
// into the document _id. Transaction requires the server to run as a replica
// set (Mongo sessions do not work against a standalone mongod).
type Store struct {
	client   *mongo.Client
	database string
}

// Connect dials the MongoDB deployment and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongodoc: uri is required")
	}
	if database == "" {
		return nil, errors.New("mongodoc: database is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{client: client, database: database}, nil
}

// Close disconnects from the deployment.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func docID(key docstore.Key) string {
	return key.Workspace + "/" + key.ID
}

func (s *Store) collection(key docstore.Key) *mongo.Collection {
	return s.client.Database(s.database).Collection(key.Collection)
}

func getDocument(ctx context.Context, coll *mongo.Collection, key docstore.Key) (docstore.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var raw bson.M
	err := coll.FindOne(ctx, bson.M{"_id": docID(key)}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	delete(raw, "_id")
	doc := make(docstore.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc, nil
}

func setDocument(ctx context.Context, coll *mongo.Collection, key docstore.Key, doc docstore.Document, merge bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if merge {
		fields := bson.M{}
		for k, v := range doc {
			fields[k] = v
		}
		_, err := coll.UpdateOne(
			ctx,
			bson.M{"_id": docID(key)},
			bson.M{"$set": fields},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("merge document %s: %w", key, err)
		}
		return nil
	}
	replacement := bson.M{"_id": docID(key)}
	for k, v := range doc {
		replacement[k] = v
	}
	_, err := coll.ReplaceOne(
		ctx,
		bson.M{"_id": docID(key)},
		replacement,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace document %s: %w", key, err)
	}
	return nil
}

// normalizeValue converts BSON driver types into the plain Go values the rest
// of the system expects from a Document.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case primitive.DateTime:
		return typed.Time().UTC()
	case primitive.A:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = normalizeValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(typed))
		for _, elem := range typed {
			out[elem.Key] = normalizeValue(elem.Value)
		}
		return out
	default:
		return v
	}
}

// Get fetches a single document.
func (s *Store) Get(ctx context.Context, key docstore.Key) (docstore.Document, error) {
	return getDocument(ctx, s.collection(key), key)
}

// Set writes a document, merging into the existing payload when merge is true.
func (s *Store) Set(ctx context.Context, key docstore.Key, doc docstore.Document, merge bool) error {
	return setDocument(ctx, s.collection(key), key, doc, merge)
}

type mongoTx struct {
	store *Store
	sess  mongo.SessionContext
}

func (t *mongoTx) Get(ctx context.Context, key docstore.Key) (docstore.Document, error) {
	return getDocument(t.sess, t.store.collection(key), key)
}

func (t *mongoTx) Set(ctx context.Context, key docstore.Key, doc docstore.Document, merge bool) error {
	return setDocument(t.sess, t.store.collection(key), key, doc, merge)
}

// Transaction runs fn inside a Mongo multi-document transaction. The driver
// retries transient transaction errors itself.
func (s *Store) Transaction(ctx context.Context, key docstore.Key, fn func(tx docstore.Tx) error) error {
	if err := key.Validate(); err != nil {
		return err
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sess mongo.SessionContext) (any, error) {
		return nil, fn(&mongoTx{store: s, sess: sess})
	})
	return err
}

// Package mongo implements store.Store on MongoDB.
//
// Reports are stored as BSON documents in the "geometries" collection, keyed
// by build ID. Listing projects away the volume table so summaries stay
// cheap for large detectors.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cerrors "github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/store"
)

// Collection is the collection reports are stored in.
const Collection = "geometries"

// Config configures a Store.
type Config struct {
	URI      string
	Database string
	// Timeout bounds connecting and pinging the server.
	Timeout time.Duration
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *driver.Client
	coll   *driver.Collection
}

// NewStore connects to MongoDB, verifies the connection and ensures the
// listing index exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = "calostack"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := driver.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "connect mongo")
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "ping mongo")
	}

	s := &Store{client: client, coll: client.Database(cfg.Database).Collection(Collection)}
	_, err = s.coll.Indexes().CreateOne(cctx, driver.IndexModel{
		Keys: bson.D{{Key: "description_hash", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "create index")
	}
	return s, nil
}

func (s *Store) Save(ctx context.Context, g *report.Geometry) error {
	if g.ID == "" {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "report id is required")
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": g.ID}, g, options.Replace().SetUpsert(true))
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeBackend, err, "save geometry %s", g.ID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*report.Geometry, error) {
	var g report.Geometry
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, cerrors.New(cerrors.ErrCodeNotFound, "geometry %s not found", id)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "get geometry %s", id)
	}
	return &g, nil
}

// summaryDoc is the projected form of a report.
type summaryDoc struct {
	ID              string       `bson:"_id"`
	DescriptionHash string       `bson:"description_hash"`
	CreatedAt       time.Time    `bson:"created_at"`
	Stats           report.Stats `bson:"stats"`
	Detectors       []struct {
		Name string `bson:"name"`
	} `bson:"detectors"`
}

func (d summaryDoc) summary() store.Summary {
	s := store.Summary{
		ID:              d.ID,
		DescriptionHash: d.DescriptionHash,
		CreatedAt:       d.CreatedAt,
		Stats:           d.Stats,
		Detectors:       make([]string, len(d.Detectors)),
	}
	for i, det := range d.Detectors {
		s.Detectors[i] = det.Name
	}
	return s
}

// listQuery returns the filter and find options for opts.
func listQuery(opts store.ListOptions) (bson.M, *options.FindOptions) {
	filter := bson.M{}
	if opts.DescriptionHash != "" {
		filter["description_hash"] = opts.DescriptionHash
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"_id": 1, "description_hash": 1, "created_at": 1, "stats": 1, "detectors.name": 1,
		})
	return filter, find
}

func (s *Store) List(ctx context.Context, opts store.ListOptions) ([]store.Summary, error) {
	filter, find := listQuery(opts)
	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "list geometries")
	}
	var docs []summaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeBackend, err, "decode geometries")
	}
	out := make([]store.Summary, len(docs))
	for i, d := range docs {
		out[i] = d.summary()
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeBackend, err, "delete geometry %s", id)
	}
	return nil
}

// Close disconnects from the server.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)

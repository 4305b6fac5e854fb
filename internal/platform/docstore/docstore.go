// Package docstore provides typed document collections over MongoDB,
// PostgreSQL JSONB tables or process memory.
//
// Documents are Go structs carrying both json and bson tags with identical
// field names; the field names are what filters, sorts and partial updates
// refer to. Every document is keyed by a primitive.ObjectID stored under
// "_id".
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Document is implemented by every stored type.
type Document interface {
	DocumentID() primitive.ObjectID
}

// Op is a comparison operator usable inside a Filter.
type Op string

const (
	OpNe Op = "$ne"
	OpLt Op = "$lt"
	OpGt Op = "$gt"
)

// Cond is a non-equality condition on a single field.
type Cond struct {
	Op    Op
	Value any
}

func Ne(v any) Cond { return Cond{Op: OpNe, Value: v} }
func Lt(v any) Cond { return Cond{Op: OpLt, Value: v} }
func Gt(v any) Cond { return Cond{Op: OpGt, Value: v} }

// Filter matches top-level fields. Plain values are compared for equality;
// Cond values apply their operator.
type Filter map[string]any

type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

// FindOptions controls ordering and paging of Find. A zero SortField keeps
// insertion order.
type FindOptions struct {
	SortField string
	SortOrder SortOrder
	Limit     int
	Offset    int
}

// Collection is a typed handle on one document collection.
type Collection[T Document] interface {
	Insert(ctx context.Context, doc *T) error
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	FindOne(ctx context.Context, f Filter) (*T, error)
	Find(ctx context.Context, f Filter, opts FindOptions) ([]*T, error)
	Count(ctx context.Context, f Filter) (int, error)
	// Replace overwrites the stored document that has the same id as doc.
	Replace(ctx context.Context, doc *T) error
	// Update merges fields into the stored document and returns the result.
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*T, error)
	// UpdateWhere is Update applied only while the stored document also
	// satisfies where. The check and the write are one atomic step; a
	// document that no longer matches is reported as ErrNotFound.
	UpdateWhere(ctx context.Context, id primitive.ObjectID, where Filter, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Spec describes a collection: its name, the fields that must be unique and
// the GeoJSON fields that get a spherical index on MongoDB.
type Spec struct {
	Name   string
	Unique []string
	Geo    []string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(s string) bool { return identRe.MatchString(s) }

// Backend names reported by Store.Backend.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Store is the persistence handle shared by all repositories. It is created
// once at start-up and closed on shutdown.
type Store struct {
	backend string
	mongoDB *mongo.Database
	pool    *pgxpool.Pool
	mem     *memoryDB
}

// NewMemoryStore returns a store that keeps documents in process memory.
func NewMemoryStore() *Store {
	return &Store{backend: BackendMemory, mem: newMemoryDB()}
}

// NewPostgresStore wraps a connection pool. Tables are created by the
// migrations shipped with the db package.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{backend: BackendPostgres, pool: pool}
}

// NewMongoStore wraps an already connected database handle.
func NewMongoStore(database *mongo.Database) *Store {
	return &Store{backend: BackendMongo, mongoDB: database}
}

func (s *Store) Backend() string { return s.backend }

// Ping checks that the underlying database answers.
func (s *Store) Ping(ctx context.Context) error {
	switch s.backend {
	case BackendMongo:
		return s.mongoDB.Client().Ping(ctx, nil)
	case BackendPostgres:
		return s.pool.Ping(ctx)
	default:
		return nil
	}
}

// Close releases the underlying connections.
func (s *Store) Close(ctx context.Context) error {
	switch s.backend {
	case BackendMongo:
		return s.mongoDB.Client().Disconnect(ctx)
	case BackendPostgres:
		s.pool.Close()
	}
	return nil
}

// EnsureIndexes creates the unique indexes of the given collections. Only
// MongoDB needs this at runtime; PostgreSQL indexes live in migrations.
func (s *Store) EnsureIndexes(ctx context.Context, specs ...Spec) error {
	if s.backend != BackendMongo {
		return nil
	}
	for _, spec := range specs {
		if err := ensureMongoIndexes(ctx, s.mongoDB.Collection(spec.Name), spec); err != nil {
			return fmt.Errorf("indexes for %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Use returns the typed collection described by spec.
func Use[T Document](s *Store, spec Spec) Collection[T] {
	if !validIdent(spec.Name) {
		panic(fmt.Sprintf("docstore: invalid collection name %q", spec.Name))
	}
	switch s.backend {
	case BackendMongo:
		return &mongoCollection[T]{coll: s.mongoDB.Collection(spec.Name)}
	case BackendPostgres:
		return &pgCollection[T]{pool: s.pool, table: spec.Name}
	default:
		return newMemoryCollection[T](s.mem.table(spec.Name), spec.Unique)
	}
}

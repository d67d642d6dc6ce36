package db

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexKind is the value stored for a field in an index key pattern.
type IndexKind string

const (
	// IndexAsc is an ascending single-field key (1).
	IndexAsc IndexKind = "asc"
	// IndexDesc is a descending single-field key (-1).
	IndexDesc IndexKind = "desc"
	// IndexText is a text index key.
	IndexText IndexKind = "text"
	// IndexHashed is a hashed index key.
	IndexHashed IndexKind = "hashed"
	// Index2DSphere is a spherical geo index key.
	Index2DSphere IndexKind = "2dsphere"
)

// IndexKey is one field of a key pattern. Order matters for compound indexes.
type IndexKey struct {
	Field string
	Kind  IndexKind
}

// IndexDefinition is a complete index description used by createIndexes.
type IndexDefinition struct {
	Name          string
	Keys          []IndexKey
	Unique        bool
	Sparse        bool
	TTL           time.Duration
	PartialFilter bson.D
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if len(idx.Keys) == 0 {
		return fmt.Errorf("%w: at least one key is required", ErrInvalidIndex)
	}

	seen := make(map[string]bool, len(idx.Keys))
	for i, k := range idx.Keys {
		if k.Field == "" {
			return fmt.Errorf("%w: field name is required at key %d", ErrInvalidIndex, i)
		}
		if seen[k.Field] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidIndex, k.Field)
		}
		seen[k.Field] = true
		if _, err := k.Kind.value(); err != nil {
			return err
		}
	}

	if idx.TTL < 0 {
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalidIndex)
	}
	if idx.TTL > 0 && len(idx.Keys) != 1 {
		return fmt.Errorf("%w: ttl requires a single-field index", ErrInvalidIndex)
	}
	return nil
}

// Model converts the definition into a driver index model.
func (idx *IndexDefinition) Model() mongo.IndexModel {
	keys := make(bson.D, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		v, _ := k.Kind.value()
		keys = append(keys, bson.E{Key: k.Field, Value: v})
	}

	opts := options.Index()
	if idx.Name != "" {
		opts.SetName(idx.Name)
	}
	if idx.Unique {
		opts.SetUnique(true)
	}
	if idx.Sparse {
		opts.SetSparse(true)
	}
	if idx.TTL > 0 {
		opts.SetExpireAfterSeconds(int32(idx.TTL / time.Second))
	}
	if len(idx.PartialFilter) > 0 {
		opts.SetPartialFilterExpression(idx.PartialFilter)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}

// String returns a debug representation resembling a shell createIndex call.
func (idx *IndexDefinition) String() string {
	parts := make([]string, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		v, _ := k.Kind.value()
		parts = append(parts, fmt.Sprintf("%s: %v", k.Field, v))
	}
	s := "createIndex({" + strings.Join(parts, ", ") + "}"
	var flags []string
	if idx.Name != "" {
		flags = append(flags, fmt.Sprintf("name: %q", idx.Name))
	}
	if idx.Unique {
		flags = append(flags, "unique: true")
	}
	if idx.Sparse {
		flags = append(flags, "sparse: true")
	}
	if idx.TTL > 0 {
		flags = append(flags, fmt.Sprintf("expireAfterSeconds: %d", int64(idx.TTL/time.Second)))
	}
	if len(flags) > 0 {
		s += ", {" + strings.Join(flags, ", ") + "}"
	}
	return s + ")"
}

// ParseIndexKind maps the declarative spellings (asc, 1, desc, -1, text,
// hashed, 2dsphere) to an IndexKind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "asc", "ascending":
		return IndexAsc, nil
	case "-1", "desc", "descending":
		return IndexDesc, nil
	case "text":
		return IndexText, nil
	case "hashed":
		return IndexHashed, nil
	case "2dsphere":
		return Index2DSphere, nil
	default:
		return "", fmt.Errorf("%w: unknown index kind %q", ErrInvalidIndex, s)
	}
}

func (k IndexKind) value() (any, error) {
	switch k {
	case IndexAsc:
		return int32(1), nil
	case IndexDesc:
		return int32(-1), nil
	case IndexText, IndexHashed, Index2DSphere:
		return string(k), nil
	default:
		return nil, fmt.Errorf("%w: unknown index kind %q", ErrInvalidIndex, string(k))
	}
}

// Package ident assigns and decodes the integer identifiers attached to
// placed volumes.
//
// Every placement carries one or more (field, value) pairs. Downstream hit
// decoding uses nothing but these pairs to recover which physical element
// produced a signal, so two placements must never share a value within the
// same field under the same parent volume. [Registry] enforces that.
//
// [Sequence] is the counter behind intra-layer element indices. A detector
// that builds several element rows against the same field shares one
// Sequence between them, so indices continue across rows instead of
// restarting at zero.
package ident

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/calostack/pkg/errors"
)

// Field is the name of an identifier channel.
type Field string

// SplitCal fields.
const (
	SplitCalLayer        Field = "splitcal_layer"
	SplitCalBar          Field = "splitcal_bar"
	SplitCalPassiveLayer Field = "splitcal_passivelayer"
	SplitCalSplitLayer   Field = "splitcal_split_layer"
	SplitCalHPLLayer     Field = "splitcal_hpl_layer"
	SplitCalHPLFibre     Field = "splitcal_hplfibre"
)

// Sandwich calorimeter, single bar layer and fibre tracker fields.
const (
	Layer        Field = "layer"
	PassiveLayer Field = "passivelayer"
	SplitLayer   Field = "split_layer"
	Bar          Field = "bar"
	LayerBox     Field = "layerbox"
	Fibre        Field = "fibre"
	BigLayer     Field = "big_layer"
	SmallLayer   Field = "small_layer"
	System       Field = "system"
)

// Identifier is a (layer, local) pair. Layer is the index assigned by the
// stack composer; Local is the element index inside the layer.
type Identifier struct {
	Layer int `json:"layer" bson:"layer"`
	Local int `json:"local" bson:"local"`
}

// Encode builds an Identifier from a layer index and a local element index.
func Encode(layer, local int) Identifier {
	return Identifier{Layer: layer, Local: local}
}

// Key packs the identifier into a single 64-bit value: the layer index in the
// upper 32 bits, the local index in the lower 32 bits.
func (id Identifier) Key() int64 {
	return int64(uint64(uint32(id.Layer))<<32 | uint64(uint32(id.Local)))
}

// Decode unpacks a value produced by [Identifier.Key].
func Decode(key int64) Identifier {
	u := uint64(key)
	return Identifier{Layer: int(int32(uint32(u >> 32))), Local: int(int32(uint32(u)))}
}

func (id Identifier) String() string {
	return fmt.Sprintf("%d/%d", id.Layer, id.Local)
}

// Value is one identifier field stamped on a placement.
type Value struct {
	Field Field `json:"field" bson:"field"`
	Value int   `json:"value" bson:"value"`
}

func (v Value) String() string {
	return fmt.Sprintf("%s=%d", v.Field, v.Value)
}

// ParseValue parses "field=value".
func ParseValue(s string) (Value, error) {
	field, raw, ok := strings.Cut(s, "=")
	if !ok || field == "" {
		return Value{}, errors.New(errors.ErrCodeInvalidInput, "identifier %q is not field=value", s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Value{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "identifier %q", s)
	}
	return Value{Field: Field(field), Value: n}, nil
}

// Sequence hands out consecutive element indices.
// The zero value starts at 0.
type Sequence struct {
	next int
}

// NewSequence returns a Sequence whose first index is start.
func NewSequence(start int) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next index and advances the sequence.
func (s *Sequence) Next() int {
	n := s.next
	s.next++
	return n
}

// Registry records issued identifiers per (scope, field) and rejects
// duplicates. Scope is normally the name of the parent volume.
// A Registry is not safe for concurrent use; each build owns one.
type Registry struct {
	seen map[scopeField]map[int]struct{}
}

type scopeField struct {
	scope string
	field Field
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[scopeField]map[int]struct{})}
}

// Claim records value in field under scope. It returns a
// DUPLICATE_IDENTIFIER error if the value was already issued there.
func (r *Registry) Claim(scope string, field Field, value int) error {
	key := scopeField{scope, field}
	values, ok := r.seen[key]
	if !ok {
		values = make(map[int]struct{})
		r.seen[key] = values
	}
	if _, dup := values[value]; dup {
		return errors.New(errors.ErrCodeDuplicateIdentifier,
			"identifier %s=%d issued twice under %s", field, value, scope)
	}
	values[value] = struct{}{}
	return nil
}

// Count returns how many identifiers were claimed in field under scope.
func (r *Registry) Count(scope string, field Field) int {
	return len(r.seen[scopeField{scope, field}])
}

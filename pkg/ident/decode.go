package ident

import (
	"strings"

	"github.com/matzehuels/calostack/pkg/errors"
)

// Node is one step of a placement path: the volume placed and the identifier
// values carried by its placement.
type Node struct {
	Volume string
	Values []Value
}

// Decoder maps identifier chains, as reported by hit collection, back to the
// volume path that produced them.
//
// A chain is ordered from the outermost placement (system) to the innermost
// (bar or fibre). Each step is resolved against the children of the previous
// step.
type Decoder struct {
	children map[string][]childRef
}

type childRef struct {
	volume string
	values []Value
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{children: make(map[string][]childRef)}
}

// Add registers a placement of child inside parent carrying values.
func (d *Decoder) Add(parent, child string, values []Value) {
	d.children[parent] = append(d.children[parent], childRef{volume: child, values: values})
}

// Resolve walks chain starting from root and returns the matching path.
// A step matches a child when every value in the step is carried by the
// child's placement.
func (d *Decoder) Resolve(root string, chain [][]Value) ([]Node, error) {
	path := make([]Node, 0, len(chain))
	current := root
	for i, step := range chain {
		next, ok := d.match(current, step)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound,
				"no placement under %s matches %s (step %d)", current, formatValues(step), i)
		}
		path = append(path, Node{Volume: next.volume, Values: next.values})
		current = next.volume
	}
	return path, nil
}

func (d *Decoder) match(parent string, step []Value) (childRef, bool) {
	for _, c := range d.children[parent] {
		if carries(c.values, step) {
			return c, true
		}
	}
	return childRef{}, false
}

func carries(have, want []Value) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func formatValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

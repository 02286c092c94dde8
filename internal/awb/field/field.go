// Package field holds the declarative registry that maps logical AWB Map
// field IDs to their locations inside a node-pair. The registry is the single
// source of truth shared by the parser and the patch engine: both sides walk
// the same definitions, so a field that decodes from a given XML path always
// patches back to the same path.
package field

import (
	"fmt"
	"sync"
)

// Category says which part of an entry's first node a field lives in.
type Category int

const (
	// CategoryOffset fields resolve directly under the first node
	// (offset coordinates, weight).
	CategoryOffset Category = iota

	// CategoryRange fields resolve under the first node's <range> sub-tree.
	CategoryRange
)

func (c Category) String() string {
	switch c {
	case CategoryOffset:
		return "offset"
	case CategoryRange:
		return "range"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Definition describes one logical field: where it lives in the XML and how
// its text coerces to a typed value. Definitions are immutable once
// registered.
type Definition struct {
	// ID is the logical field name, e.g. "offset_x" or "bv_min".
	ID string

	// Category selects the resolution base inside the first node.
	Category Category

	// Path is the element path from the resolution base to the leaf.
	// At most two segments (e.g. ["weight"] or ["bv", "min"]).
	Path []string

	// Type controls text coercion and canonical rendering.
	Type Type

	// Default substitutes for missing or unparsable text at decode time.
	Default any
}

// MaxPathSegments is the deepest path a Definition may declare.
const MaxPathSegments = 2

// ConflictError reports an attempt to register an already-registered field ID.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field %q is already registered", e.ID)
}

// Registry is a read-mostly table of field definitions. It must be fully
// populated before the parser or writer runs. Construct one explicitly and
// inject it; there is no package-level instance.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func validate(d Definition) error {
	if d.ID == "" {
		return fmt.Errorf("field definition has empty ID")
	}
	if len(d.Path) == 0 || len(d.Path) > MaxPathSegments {
		return fmt.Errorf("field %q: path must have 1..%d segments, got %d", d.ID, MaxPathSegments, len(d.Path))
	}
	for _, seg := range d.Path {
		if seg == "" {
			return fmt.Errorf("field %q: empty path segment", d.ID)
		}
	}
	if !d.Type.valid() {
		return fmt.Errorf("field %q: unknown data type %d", d.ID, int(d.Type))
	}
	return nil
}

// Register adds a definition. Registering an ID twice is a ConflictError;
// use Override to replace deliberately.
func (r *Registry) Register(d Definition) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[d.ID]; ok {
		return &ConflictError{ID: d.ID}
	}
	r.defs[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Override registers d, replacing any previous definition for the same ID.
// The return value tells the caller whether an existing definition was
// overwritten.
func (r *Registry) Override(d Definition) (replaced bool, err error) {
	if err := validate(d); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.defs[d.ID]
	r.defs[d.ID] = d
	if !replaced {
		r.order = append(r.order, d.ID)
	}
	return replaced, nil
}

// Lookup returns the definition for id, if registered.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Canonical field IDs for the AWB Map dialect.
const (
	OffsetX = "offset_x"
	OffsetY = "offset_y"
	Weight  = "weight"

	BVMin  = "bv_min"
	BVMax  = "bv_max"
	IRMin  = "ir_min"
	IRMax  = "ir_max"
	CCTMin = "cct_min"
	CCTMax = "cct_max"
	RGMin  = "rg_ratio_min"
	RGMax  = "rg_ratio_max"
	BGMin  = "bg_ratio_min"
	BGMax  = "bg_ratio_max"
	SatMin = "sat_min"
	SatMax = "sat_max"

	Detect = "detect"
)

// RangePairs lists the min/max field ID pairs under the <range> sub-tree,
// in document order.
var RangePairs = [][2]string{
	{BVMin, BVMax},
	{IRMin, IRMax},
	{CCTMin, CCTMax},
	{RGMin, RGMax},
	{BGMin, BGMax},
	{SatMin, SatMax},
}

// DefaultRegistry returns a registry populated with the full AWB Map field
// set. Panics on a definition error, which would be a programming mistake in
// the table below.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	defs := []Definition{
		{ID: OffsetX, Category: CategoryOffset, Path: []string{"offset", "x"}, Type: TypeFloat, Default: 0.0},
		{ID: OffsetY, Category: CategoryOffset, Path: []string{"offset", "y"}, Type: TypeFloat, Default: 0.0},
		{ID: Weight, Category: CategoryOffset, Path: []string{"weight"}, Type: TypeFloat, Default: 1.0},

		{ID: BVMin, Category: CategoryRange, Path: []string{"bv", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: BVMax, Category: CategoryRange, Path: []string{"bv", "max"}, Type: TypeFloat, Default: 0.0},
		{ID: IRMin, Category: CategoryRange, Path: []string{"ir", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: IRMax, Category: CategoryRange, Path: []string{"ir", "max"}, Type: TypeFloat, Default: 0.0},
		{ID: CCTMin, Category: CategoryRange, Path: []string{"color_cct", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: CCTMax, Category: CategoryRange, Path: []string{"color_cct", "max"}, Type: TypeFloat, Default: 0.0},
		{ID: RGMin, Category: CategoryRange, Path: []string{"rg_ratio", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: RGMax, Category: CategoryRange, Path: []string{"rg_ratio", "max"}, Type: TypeFloat, Default: 0.0},
		{ID: BGMin, Category: CategoryRange, Path: []string{"bg_ratio", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: BGMax, Category: CategoryRange, Path: []string{"bg_ratio", "max"}, Type: TypeFloat, Default: 0.0},
		{ID: SatMin, Category: CategoryRange, Path: []string{"sat", "min"}, Type: TypeFloat, Default: 0.0},
		{ID: SatMax, Category: CategoryRange, Path: []string{"sat", "max"}, Type: TypeFloat, Default: 0.0},

		{ID: Detect, Category: CategoryRange, Path: []string{"detect"}, Type: TypeBool, Default: false},
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(fmt.Sprintf("default registry: %v", err))
		}
	}
	return r
}

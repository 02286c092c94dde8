// Package awb holds the in-memory model of a vendor AWB Map tuning document:
// the ordered calibration entries, the base boundary reference, and the error
// taxonomy shared by the parser and the patch engine.
package awb

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/awbmap/internal/awb/field"
)

// BaseBoundaryTag is the tag name of the singleton base boundary node-pair.
const BaseBoundaryTag = "base_boundary0"

// EntryTag returns the tag name of the n-th calibration entry (1-based).
// Indices are contiguous and zero-padded to width 2.
func EntryTag(n int) string {
	return fmt.Sprintf("offset_map%02d", n)
}

// Vertex is one polygon vertex in the RpG/BpG ratio plane.
type Vertex struct {
	RpG float64
	BpG float64
}

// MapPoint is one calibration entry. Its identity is the alias name; the Tag
// records which numbered node-pair held it at parse time, but the writer
// never trusts positional correspondence and always re-resolves by alias.
type MapPoint struct {
	// Tag is the numbered tag name, e.g. "offset_map07".
	Tag string

	// Alias is the entry's stable identity, unique within a document.
	Alias string

	// TransStep is the transition-step integer from the second node.
	TransStep int

	// Enabled reflects the second node's enable flag.
	Enabled bool

	// Polygon holds the region vertices when the entry is defined by a
	// region rather than a point. Empty for point-shaped entries.
	Polygon []Vertex

	fields map[string]any
}

// NewMapPoint returns an entry with no field values set.
func NewMapPoint(tag, alias string) *MapPoint {
	return &MapPoint{
		Tag:     tag,
		Alias:   alias,
		Enabled: true,
		fields:  make(map[string]any),
	}
}

// Field returns the raw typed value stored for a field ID.
func (p *MapPoint) Field(id string) (any, bool) {
	v, ok := p.fields[id]
	return v, ok
}

// SetField stores a raw typed value for a field ID.
func (p *MapPoint) SetField(id string, v any) {
	if p.fields == nil {
		p.fields = make(map[string]any)
	}
	p.fields[id] = v
}

// Float returns the float value for id, or 0 when unset or non-float.
func (p *MapPoint) Float(id string) float64 {
	f, _ := p.fields[id].(float64)
	return f
}

// SetFloat stores a float field value.
func (p *MapPoint) SetFloat(id string, f float64) {
	p.SetField(id, f)
}

// Bool returns the boolean value for id, or false when unset.
func (p *MapPoint) Bool(id string) bool {
	b, _ := p.fields[id].(bool)
	return b
}

// SetBool stores a boolean field value.
func (p *MapPoint) SetBool(id string, b bool) {
	p.SetField(id, b)
}

// Int returns the integer value for id, or 0 when unset.
func (p *MapPoint) Int(id string) int {
	n, _ := p.fields[id].(int)
	return n
}

// SetInt stores an integer field value.
func (p *MapPoint) SetInt(id string, n int) {
	p.SetField(id, n)
}

// FieldIDs returns the IDs with stored values, sorted for stable iteration.
func (p *MapPoint) FieldIDs() []string {
	ids := make([]string, 0, len(p.fields))
	for id := range p.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasPolygon reports whether the entry is region-shaped.
func (p *MapPoint) HasPolygon() bool {
	return len(p.Polygon) > 0
}

// Representative returns the entry's representative (x, y) coordinate:
// the polygon centroid for region-shaped entries, otherwise the decoded
// offset.
func (p *MapPoint) Representative() (x, y float64) {
	if !p.HasPolygon() {
		return p.Float(field.OffsetX), p.Float(field.OffsetY)
	}
	for _, v := range p.Polygon {
		x += v.RpG
		y += v.BpG
	}
	n := float64(len(p.Polygon))
	return x / n, y / n
}

// BaseBoundary is the single reference ratio pair all map points are
// measured relative to.
type BaseBoundary struct {
	RpG float64
	BpG float64
}

// FieldWarning records a non-fatal decode problem: the field fell back to
// its registered default.
type FieldWarning struct {
	Tag     string
	Alias   string
	FieldID string
	Raw     string
	Err     error
}

func (w FieldWarning) String() string {
	return fmt.Sprintf("%s/%s: field %q defaulted (%v)", w.Tag, w.Alias, w.FieldID, w.Err)
}

// MapConfiguration owns the ordered calibration entries plus the base
// boundary, along with parse-session metadata. Entries may be reordered
// freely in memory; the document keeps its original tag numbering.
type MapConfiguration struct {
	DeviceLabel string
	SourcePath  string
	ParseID     string
	ParsedAt    time.Time

	// Points are the kept entries, in original document order at parse
	// time. Callers may resort this slice.
	Points []*MapPoint

	// Base is the detached base_boundary0 record. It is not part of the
	// ordered sequence and is not user-reorderable.
	Base *MapPoint

	// Boundary carries the two reference ratios decoded from Base.
	Boundary BaseBoundary

	// Warnings collects non-fatal field decode problems.
	Warnings []FieldWarning
}

// PointByAlias returns the entry with the given alias, or nil.
func (c *MapConfiguration) PointByAlias(alias string) *MapPoint {
	for _, p := range c.Points {
		if p.Alias == alias {
			return p
		}
	}
	return nil
}

// Aliases returns the alias of every entry in current slice order.
func (c *MapConfiguration) Aliases() []string {
	out := make([]string, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Alias
	}
	return out
}

// FileMetadata summarises an on-disk tuning document without a full parse.
type FileMetadata struct {
	Path            string
	SizeBytes       int64
	ModTime         time.Time
	RootTag         string
	EntryCount      int
	HasBaseBoundary bool
	Aliases         []string
}

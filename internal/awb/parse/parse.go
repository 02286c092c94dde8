// Package parse decodes the dual-node AWB Map XML dialect into typed
// records. Each numbered tag appears exactly twice in the document: the
// first occurrence carries the numeric payload, the second the identity
// payload. The decode of numeric fields is driven entirely by the field
// registry so that the patch engine later projects the same fields back to
// the same locations.
package parse

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/monitoring"
	"github.com/google/uuid"
)

// Second-node element names.
const (
	aliasElement     = "AliasName"
	polygonRpG       = "RpG"
	polygonBpG       = "BpG"
	transStepElement = "TransStep"
	enableElement    = "Enable"
)

// Parser decodes documents against an injected field registry.
type Parser struct {
	Registry *field.Registry
}

// NewParser returns a parser bound to reg. The registry must be fully
// populated before the first Parse call.
func NewParser(reg *field.Registry) *Parser {
	return &Parser{Registry: reg}
}

// ParseFile reads and decodes the document at path.
func (p *Parser) ParseFile(path, deviceLabel string) (*awb.MapConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := p.Parse(data, deviceLabel)
	if err != nil {
		if pe, ok := err.(*awb.ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	cfg.SourcePath = path
	return cfg, nil
}

// Parse decodes a document held in memory.
func (p *Parser) Parse(data []byte, deviceLabel string) (*awb.MapConfiguration, error) {
	occs, _, err := collect(data)
	if err != nil {
		return nil, err
	}

	cfg := &awb.MapConfiguration{
		DeviceLabel: deviceLabel,
		ParseID:     uuid.New().String(),
		ParsedAt:    time.Now(),
	}

	// Base boundary first: same dual-node decode, stored detached.
	basePair := occs[awb.BaseBoundaryTag]
	if len(basePair) != 2 {
		return nil, &awb.ParseError{
			Msg: fmt.Sprintf("tag %q appears %d times, want 2", awb.BaseBoundaryTag, len(basePair)),
		}
	}
	base := p.decodePair(awb.BaseBoundaryTag, basePair[0], basePair[1], cfg)
	cfg.Base = base
	cfg.Boundary = awb.BaseBoundary{
		RpG: base.Float(field.OffsetX),
		BpG: base.Float(field.OffsetY),
	}

	// Numbered entries: contiguous, 1-based, stop at the first gap.
	seen := make(map[string]string)
	for n := 1; ; n++ {
		tag := awb.EntryTag(n)
		pair := occs[tag]
		if len(pair) == 0 {
			break
		}
		if len(pair) != 2 {
			return nil, &awb.ParseError{
				Msg: fmt.Sprintf("tag %q appears %d times, want 2", tag, len(pair)),
			}
		}

		pt := p.decodePair(tag, pair[0], pair[1], cfg)
		if isPlaceholder(pt, pair[1]) {
			monitoring.Debugf("parse: dropping placeholder entry %s", tag)
			continue
		}

		if prev, dup := seen[pt.Alias]; dup && pt.Alias != "" {
			return nil, &awb.ParseError{
				Msg: fmt.Sprintf("alias %q used by both %s and %s", pt.Alias, prev, tag),
			}
		}
		seen[pt.Alias] = tag
		cfg.Points = append(cfg.Points, pt)
	}

	monitoring.Debugf("parse: decoded %d entries, %d warnings", len(cfg.Points), len(cfg.Warnings))
	return cfg, nil
}

// decodePair decodes one node-pair into a MapPoint, collecting non-fatal
// field warnings on cfg.
func (p *Parser) decodePair(tag string, first, second *element, cfg *awb.MapConfiguration) *awb.MapPoint {
	alias := ""
	if raw, ok := second.textAt(aliasElement); ok {
		alias = strings.TrimSpace(raw)
	}
	pt := awb.NewMapPoint(tag, alias)

	// Numeric payload, registry-driven. A missing leaf takes the default
	// silently (sparse documents are normal; the base boundary has no
	// range sub-tree at all). Unparsable text defaults with a warning.
	rangeNode := first.child("range")
	for _, def := range p.Registry.All() {
		base := first
		if def.Category == field.CategoryRange {
			base = rangeNode
		}
		if base == nil {
			pt.SetField(def.ID, def.Default)
			continue
		}
		raw, ok := base.textAt(def.Path...)
		if !ok || strings.TrimSpace(raw) == "" {
			pt.SetField(def.ID, def.Default)
			continue
		}
		v, err := def.Type.Parse(raw)
		if err != nil {
			pt.SetField(def.ID, def.Default)
			cfg.Warnings = append(cfg.Warnings, awb.FieldWarning{
				Tag: tag, Alias: alias, FieldID: def.ID, Raw: strings.TrimSpace(raw), Err: err,
			})
			continue
		}
		pt.SetField(def.ID, v)
	}

	// Identity payload from the second node, outside the registry path.
	if raw, ok := second.textAt(transStepElement); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, awb.FieldWarning{
				Tag: tag, Alias: alias, FieldID: transStepElement, Raw: strings.TrimSpace(raw), Err: err,
			})
		} else {
			pt.TransStep = n
		}
	}

	pt.Enabled = true
	if raw, ok := second.textAt(enableElement); ok && strings.TrimSpace(raw) != "" {
		switch strings.TrimSpace(raw) {
		case "0":
			pt.Enabled = false
		case "1":
			pt.Enabled = true
		default:
			cfg.Warnings = append(cfg.Warnings, awb.FieldWarning{
				Tag: tag, Alias: alias, FieldID: enableElement, Raw: strings.TrimSpace(raw),
				Err: fmt.Errorf("not a 0/1 flag"),
			})
		}
	}

	pt.Polygon = decodePolygon(tag, alias, second, cfg)
	return pt
}

// decodePolygon returns the vertex list when the second node carries equal
// length RpG/BpG coordinate lists, nil otherwise.
func decodePolygon(tag, alias string, second *element, cfg *awb.MapConfiguration) []awb.Vertex {
	rawR, okR := second.textAt(polygonRpG)
	rawB, okB := second.textAt(polygonBpG)
	if !okR || !okB {
		return nil
	}

	rs := strings.Fields(rawR)
	bs := strings.Fields(rawB)
	if len(rs) == 0 || len(rs) != len(bs) {
		if len(rs) != 0 || len(bs) != 0 {
			cfg.Warnings = append(cfg.Warnings, awb.FieldWarning{
				Tag: tag, Alias: alias, FieldID: polygonRpG,
				Err: fmt.Errorf("polygon lists have %d/%d vertices", len(rs), len(bs)),
			})
		}
		return nil
	}

	poly := make([]awb.Vertex, len(rs))
	for i := range rs {
		r, errR := strconv.ParseFloat(rs[i], 64)
		b, errB := strconv.ParseFloat(bs[i], 64)
		if errR != nil || errB != nil {
			cfg.Warnings = append(cfg.Warnings, awb.FieldWarning{
				Tag: tag, Alias: alias, FieldID: polygonRpG,
				Err: fmt.Errorf("polygon vertex %d is not numeric", i),
			})
			return nil
		}
		poly[i] = awb.Vertex{RpG: r, BpG: b}
	}
	return poly
}

// isPlaceholder classifies an entry as an empty slot to drop: the enable
// flag must be explicitly present and false, the alias empty, the offset
// exactly (0,0) and no polygon data present. Any one of a non-empty alias,
// a non-zero offset or polygon data keeps the entry; weight is deliberately
// never consulted.
func isPlaceholder(pt *awb.MapPoint, second *element) bool {
	raw, present := second.textAt(enableElement)
	disabled := present && strings.TrimSpace(raw) == "0"
	return disabled &&
		pt.Alias == "" &&
		pt.Float(field.OffsetX) == 0 &&
		pt.Float(field.OffsetY) == 0 &&
		!pt.HasPolygon()
}

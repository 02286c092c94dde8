// Package validate runs structural and content checks over a tuning
// document at configurable strictness levels.
package validate

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/locate"
	"github.com/banshee-data/awbmap/internal/awb/parse"
)

// Level selects how deep a validation run goes. Each level includes the
// ones below it.
type Level int

const (
	// LevelBasic checks file existence and shape.
	LevelBasic Level = iota

	// LevelStructure additionally checks XML well-formedness and the
	// node-pair layout.
	LevelStructure

	// LevelContent additionally decodes the document and checks value
	// plausibility.
	LevelContent
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelStructure:
		return "structure"
	case LevelContent:
		return "content"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a level name to its Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "basic":
		return LevelBasic, nil
	case "structure", "structural":
		return LevelStructure, nil
	case "content":
		return LevelContent, nil
	}
	return 0, fmt.Errorf("unknown validation level %q", s)
}

// Result reports the outcome of one validation run. Problems the document
// can still be used with land in Warnings; Problems that make it unusable
// land in Errors.
type Result struct {
	Path       string
	Level      Level
	Errors     []string
	Warnings   []string
	EntryCount int
}

// OK reports whether the run found no errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, v ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, v...))
}

func (r *Result) warnf(format string, v ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, v...))
}

// Validate checks the document at path up to the given level. A run that
// cannot start at all (unreadable file at structure level and above) returns
// a ValidationError; findings are reported in the result.
func Validate(path string, level Level, reg *field.Registry) (*Result, error) {
	res := &Result{Path: path, Level: level}

	info, err := os.Stat(path)
	if err != nil {
		res.errorf("file not accessible: %v", err)
		return res, nil
	}
	if info.IsDir() {
		res.errorf("%s is a directory", path)
		return res, nil
	}
	if info.Size() == 0 {
		res.errorf("file is empty")
		return res, nil
	}
	if ext := filepath.Ext(path); !strings.EqualFold(ext, ".xml") {
		res.warnf("unexpected file extension %q", ext)
	}
	if level == LevelBasic {
		return res, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &awb.ValidationError{Path: path, Err: err}
	}
	checkStructure(data, res)
	if level == LevelStructure || !res.OK() {
		return res, nil
	}

	checkContent(path, reg, res)
	return res, nil
}

// checkStructure verifies well-formedness and the dual-node layout: one
// base boundary pair plus contiguously numbered entry pairs, each tag
// appearing exactly twice.
func checkStructure(data []byte, res *Result) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if syn, ok := err.(*xml.SyntaxError); ok {
				res.errorf("malformed XML at line %d: %s", syn.Line, syn.Msg)
			} else {
				res.errorf("malformed XML: %v", err)
			}
			return
		}
	}

	occ := locate.Occurrences(data, awb.BaseBoundaryTag)
	if len(occ) != 2 {
		res.errorf("tag %q appears %d times, want 2", awb.BaseBoundaryTag, len(occ))
	}

	count := 0
	for n := 1; ; n++ {
		tag := awb.EntryTag(n)
		spans := locate.Occurrences(data, tag)
		if len(spans) == 0 {
			// Contiguity: anything after the first gap is unreachable.
			if extra := locate.Occurrences(data, awb.EntryTag(n+1)); len(extra) > 0 {
				res.errorf("entry numbering gap: %s missing but %s present", tag, awb.EntryTag(n+1))
			}
			break
		}
		if len(spans) != 2 {
			res.errorf("tag %q appears %d times, want 2", tag, len(spans))
		}
		count++
	}
	res.EntryCount = count
}

// checkContent decodes the document and checks value plausibility: ordered
// range pairs, non-negative weights, sane boundary ratios.
func checkContent(path string, reg *field.Registry, res *Result) {
	cfg, err := parse.NewParser(reg).ParseFile(path, "")
	if err != nil {
		var pe *awb.ParseError
		if errors.As(err, &pe) {
			res.errorf("%v", pe)
			return
		}
		res.errorf("decode failed: %v", err)
		return
	}

	for _, w := range cfg.Warnings {
		res.warnf("%s", w)
	}

	if cfg.Boundary.RpG <= 0 || cfg.Boundary.BpG <= 0 {
		res.warnf("base boundary ratios (%v, %v) are not positive",
			cfg.Boundary.RpG, cfg.Boundary.BpG)
	}

	for _, pt := range cfg.Points {
		if pt.Float(field.Weight) < 0 {
			res.errorf("entry %q: negative weight %v", pt.Alias, pt.Float(field.Weight))
		}
		for _, pair := range field.RangePairs {
			lo, hi := pt.Float(pair[0]), pt.Float(pair[1])
			if lo > hi {
				res.errorf("entry %q: %s (%v) exceeds %s (%v)", pt.Alias, pair[0], lo, pair[1], hi)
			}
		}
		if pt.Alias == "" {
			res.warnf("entry %s has no alias; it cannot be re-resolved at write time", pt.Tag)
		}
	}
}

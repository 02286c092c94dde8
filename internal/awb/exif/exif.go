// Package exif ingests per-frame EXIF CSV logs and matches frames against
// map-point validity ranges, producing per-point coverage statistics.
package exif

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/field"
)

// Frame is one EXIF log row: the scene statistics the camera recorded for a
// single capture.
type Frame struct {
	// BV is the scene brightness value.
	BV float64

	// CCT is the estimated colour temperature in Kelvin.
	CCT float64

	// IR is the infrared ratio.
	IR float64

	// RpG and BpG are the white-point ratios relative to green.
	RpG float64
	BpG float64

	// SourceFile and SourceRow record provenance for diagnostics.
	SourceFile string
	SourceRow  int
}

// Column names accepted in the CSV header (case-insensitive). The header is
// mandatory; column order is free.
var columnAliases = map[string]string{
	"bv":        "bv",
	"cct":       "cct",
	"color_cct": "cct",
	"ir":        "ir",
	"ir_ratio":  "ir",
	"rpg":       "rpg",
	"r_g":       "rpg",
	"bpg":       "bpg",
	"b_g":       "bpg",
}

// ReadCSV decodes EXIF frames from r. Rows with non-numeric values in a
// required column are skipped and counted, not fatal.
func ReadCSV(r io.Reader, sourceName string) ([]Frame, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read CSV header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		key, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if ok {
			cols[key] = i
		}
	}
	for _, required := range []string{"bv", "cct", "ir", "rpg", "bpg"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("CSV header missing %q column", required)
		}
	}

	var frames []Frame
	skipped := 0
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read CSV row %d: %w", row, err)
		}

		f := Frame{SourceFile: sourceName, SourceRow: row}
		ok := true
		for key, dst := range map[string]*float64{
			"bv": &f.BV, "cct": &f.CCT, "ir": &f.IR, "rpg": &f.RpG, "bpg": &f.BpG,
		} {
			idx := cols[key]
			if idx >= len(rec) {
				ok = false
				break
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				ok = false
				break
			}
			*dst = v
		}
		if !ok {
			skipped++
			continue
		}
		frames = append(frames, f)
	}
	return frames, skipped, nil
}

// ReadCSVFile reads frames from the CSV file at path.
func ReadCSVFile(path string) ([]Frame, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ReadCSV(f, path)
}

// Match assigns a frame to the map point that covers it.
type Match struct {
	Frame Frame

	// Alias is the matched entry, empty when no entry covers the frame.
	Alias string

	Matched bool
}

// MatchFrames assigns each frame to the first map point, in slice order,
// whose bv/ir/cct ranges all contain it (bounds inclusive). Disabled
// entries never match.
func MatchFrames(cfg *awb.MapConfiguration, frames []Frame) []Match {
	out := make([]Match, len(frames))
	for i, f := range frames {
		out[i] = Match{Frame: f}
		for _, pt := range cfg.Points {
			if !pt.Enabled {
				continue
			}
			if covers(pt, f) {
				out[i].Alias = pt.Alias
				out[i].Matched = true
				break
			}
		}
	}
	return out
}

func covers(pt *awb.MapPoint, f Frame) bool {
	return within(f.BV, pt.Float(field.BVMin), pt.Float(field.BVMax)) &&
		within(f.IR, pt.Float(field.IRMin), pt.Float(field.IRMax)) &&
		within(f.CCT, pt.Float(field.CCTMin), pt.Float(field.CCTMax))
}

func within(v, lo, hi float64) bool {
	return lo <= v && v <= hi
}

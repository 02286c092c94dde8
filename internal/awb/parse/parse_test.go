package parse

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/testutil"
)

func newTestParser() *Parser {
	return NewParser(field.DefaultRegistry())
}

func TestParseSampleDocument(t *testing.T) {
	cfg, err := newTestParser().Parse(testutil.SampleDocument(), "unit-01")
	require.NoError(t, err)

	assert.Equal(t, "unit-01", cfg.DeviceLabel)
	assert.NotEmpty(t, cfg.ParseID)
	assert.Empty(t, cfg.Warnings)

	// The disabled empty slot offset_map03 is dropped.
	require.Len(t, cfg.Points, 2)
	assert.Equal(t, []string{testutil.SampleAliasBlueSky, testutil.SampleAliasIndoor}, cfg.Aliases())

	assert.InDelta(t, 0.512, cfg.Boundary.RpG, 1e-12)
	assert.InDelta(t, 0.463, cfg.Boundary.BpG, 1e-12)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	require.NotNil(t, pt)
	assert.Equal(t, "offset_map01", pt.Tag)
	assert.InDelta(t, 0.578, pt.Float(field.OffsetX), 1e-12)
	assert.InDelta(t, 0.312, pt.Float(field.OffsetY), 1e-12)
	assert.InDelta(t, 8, pt.Float(field.Weight), 1e-12)
	assert.InDelta(t, 5500, pt.Float(field.CCTMin), 1e-12)
	assert.InDelta(t, 7500, pt.Float(field.CCTMax), 1e-12)
	assert.True(t, pt.Bool(field.Detect))
	assert.Equal(t, 2, pt.TransStep)
	assert.True(t, pt.Enabled)
	assert.False(t, pt.HasPolygon())
}

func TestParsePolygonEntry(t *testing.T) {
	cfg, err := newTestParser().Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)

	pt := cfg.PointByAlias(testutil.SampleAliasIndoor)
	require.NotNil(t, pt)
	require.True(t, pt.HasPolygon())
	require.Len(t, pt.Polygon, 4)
	assert.Equal(t, awb.Vertex{RpG: 0.50, BpG: 0.40}, pt.Polygon[0])

	// Representative coordinate is the polygon centroid, not the (0,0) offset.
	x, y := pt.Representative()
	assert.InDelta(t, 0.54, x, 1e-12)
	assert.InDelta(t, 0.44, y, 1e-12)
}

func TestParseFileSetsSourcePath(t *testing.T) {
	path := testutil.SampleDocumentFile(t)
	cfg, err := newTestParser().ParseFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.SourcePath)
}

func TestParseMissingBaseBoundary(t *testing.T) {
	doc := `<r>
<offset_map01><offset><x>1</x><y>1</y></offset></offset_map01>
<offset_map01><AliasName>A</AliasName></offset_map01>
</r>`
	_, err := newTestParser().Parse([]byte(doc), "")
	var pe *awb.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), awb.BaseBoundaryTag)
}

func TestParseIncompletePair(t *testing.T) {
	doc := strings.Replace(string(testutil.SampleDocument()),
		"<offset_map02>\n\t\t<AliasName>2_Indoor_TL84</AliasName>", "<offset_map04>\n\t\t<AliasName>2_Indoor_TL84</AliasName>", 1)
	doc = strings.Replace(doc, "</offset_map02>\n\t<offset_map03>", "</offset_map04>\n\t<offset_map03>", 1)

	_, err := newTestParser().Parse([]byte(doc), "")
	var pe *awb.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "offset_map02")
}

func TestParseDuplicateAlias(t *testing.T) {
	doc := strings.Replace(string(testutil.SampleDocument()),
		"<AliasName>2_Indoor_TL84</AliasName>",
		"<AliasName>1_BlueSky_Bright</AliasName>", 1)

	_, err := newTestParser().Parse([]byte(doc), "")
	var pe *awb.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "1_BlueSky_Bright")
}

func TestParseMalformedXML(t *testing.T) {
	_, err := newTestParser().Parse([]byte("<r><offset_map01></r>"), "")
	var pe *awb.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Greater(t, pe.Line, 0)
}

func TestParseUnparsableFieldWarns(t *testing.T) {
	doc := strings.Replace(string(testutil.SampleDocument()), "<min>6</min>", "<min>six</min>", 1)

	cfg, err := newTestParser().Parse([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Equal(t, field.BVMin, cfg.Warnings[0].FieldID)
	assert.Equal(t, "six", cfg.Warnings[0].Raw)

	// The field fell back to its registered default.
	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	require.NotNil(t, pt)
	assert.Zero(t, pt.Float(field.BVMin))
}

func TestParseMissingLeafDefaultsSilently(t *testing.T) {
	doc := strings.Replace(string(testutil.SampleDocument()),
		"<weight>8</weight>\n\t\t", "", 1)

	cfg, err := newTestParser().Parse([]byte(doc), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	require.NotNil(t, pt)
	assert.InDelta(t, 1.0, pt.Float(field.Weight), 1e-12)
}

func TestPlaceholderKeptWhenNotEmpty(t *testing.T) {
	// Give the disabled slot a non-zero offset; it must now be kept as a
	// disabled entry rather than dropped.
	doc := strings.Replace(string(testutil.SampleDocument()),
		"<offset_map03>\n\t\t<offset>\n\t\t\t<x>0</x>",
		"<offset_map03>\n\t\t<offset>\n\t\t\t<x>0.2</x>", 1)

	cfg, err := newTestParser().Parse([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, cfg.Points, 3)

	kept := cfg.Points[2]
	assert.Equal(t, "offset_map03", kept.Tag)
	assert.False(t, kept.Enabled)
}

func TestParseMismatchedPolygonWarns(t *testing.T) {
	doc := strings.Replace(string(testutil.SampleDocument()),
		"<BpG>0.40 0.40 0.48 0.48</BpG>",
		"<BpG>0.40 0.40 0.48</BpG>", 1)

	cfg, err := newTestParser().Parse([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)

	pt := cfg.PointByAlias(testutil.SampleAliasIndoor)
	require.NotNil(t, pt)
	assert.False(t, pt.HasPolygon())
}

func TestParseErrorForUnreadableFile(t *testing.T) {
	_, err := newTestParser().ParseFile("/nonexistent/awb_map.xml", "")
	if err == nil {
		t.Fatal("ParseFile succeeded on a missing file")
	}
}

func TestParseID(t *testing.T) {
	a, err := newTestParser().Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)
	b, err := newTestParser().Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ParseID, b.ParseID, "parse sessions must get distinct IDs")
}

func TestParseBoolDefaultsWhenRangeAbsent(t *testing.T) {
	cfg, err := newTestParser().Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)

	// The base boundary has no <range> sub-tree; range fields default
	// without warnings.
	require.NotNil(t, cfg.Base)
	assert.False(t, cfg.Base.Bool(field.Detect))
	assert.Zero(t, cfg.Base.Float(field.BVMin))
}

func TestParseErrorsAreErrorsIsFriendly(t *testing.T) {
	_, err := newTestParser().Parse([]byte("not xml at all"), "")
	var pe *awb.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *awb.ParseError", err)
	}
}

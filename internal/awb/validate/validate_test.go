package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/testutil"
)

func validateSample(t *testing.T, mutate func(string) string, level Level) *Result {
	t.Helper()
	doc := string(testutil.SampleDocument())
	if mutate != nil {
		doc = mutate(doc)
	}
	path := testutil.WriteTempFile(t, "awb_map.xml", []byte(doc))
	res, err := Validate(path, level, field.DefaultRegistry())
	require.NoError(t, err)
	return res
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"basic":      LevelBasic,
		"structure":  LevelStructure,
		"structural": LevelStructure,
		"Content":    LevelContent,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("paranoid")
	assert.Error(t, err)
}

func TestValidateCleanDocument(t *testing.T) {
	res := validateSample(t, nil, LevelContent)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 3, res.EntryCount)
}

func TestValidateMissingFile(t *testing.T) {
	res, err := Validate("/nonexistent/awb.xml", LevelBasic, field.DefaultRegistry())
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestValidateEmptyFile(t *testing.T) {
	path := testutil.WriteTempFile(t, "empty.xml", nil)
	res, err := Validate(path, LevelBasic, field.DefaultRegistry())
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestValidateExtensionWarning(t *testing.T) {
	path := testutil.WriteTempFile(t, "awb_map.cfg", testutil.SampleDocument())
	res, err := Validate(path, LevelBasic, field.DefaultRegistry())
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], ".cfg")
}

func TestValidateBasicStopsEarly(t *testing.T) {
	// Malformed XML passes basic level: only shape is checked.
	path := testutil.WriteTempFile(t, "bad.xml", []byte("<r><unclosed></r>"))
	res, err := Validate(path, LevelBasic, field.DefaultRegistry())
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateStructureMalformed(t *testing.T) {
	path := testutil.WriteTempFile(t, "bad.xml", []byte("<r><unclosed></r>"))
	res, err := Validate(path, LevelStructure, field.DefaultRegistry())
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0], "malformed XML")
}

func TestValidateStructureIncompletePair(t *testing.T) {
	res := validateSample(t, func(doc string) string {
		// Drop the second occurrence of offset_map01 entirely.
		start := strings.Index(doc, "\t<offset_map01>\n\t\t<AliasName>")
		end := strings.Index(doc, "\t<offset_map02>")
		return doc[:start] + doc[end:]
	}, LevelStructure)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0], "offset_map01")
}

func TestValidateStructureNumberingGap(t *testing.T) {
	res := validateSample(t, func(doc string) string {
		return strings.ReplaceAll(doc, "offset_map02", "offset_map05")
	}, LevelStructure)
	require.False(t, res.OK())
	assert.Contains(t, strings.Join(res.Errors, "\n"), "gap")
}

func TestValidateContentRangeInversion(t *testing.T) {
	res := validateSample(t, func(doc string) string {
		return strings.Replace(doc, "<min>5500</min>\n\t\t\t\t<max>7500</max>", "<min>7500</min>\n\t\t\t\t<max>5500</max>", 1)
	}, LevelContent)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0], field.CCTMin)
}

func TestValidateContentNegativeWeight(t *testing.T) {
	res := validateSample(t, func(doc string) string {
		return strings.Replace(doc, "<weight>8</weight>", "<weight>-8</weight>", 1)
	}, LevelContent)
	require.False(t, res.OK())
	assert.Contains(t, res.Errors[0], "negative weight")
}

func TestValidateContentPropagatesWarnings(t *testing.T) {
	res := validateSample(t, func(doc string) string {
		return strings.Replace(doc, "<min>6</min>", "<min>six</min>", 1)
	}, LevelContent)
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.Warnings)
}

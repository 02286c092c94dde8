package awbmap

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/validate"
	"github.com/banshee-data/awbmap/internal/testutil"
)

// End-to-end pass over one document: parse, patch one value with a backup,
// list and restore the backup, validate, read metadata.
func TestFacadeRoundTrip(t *testing.T) {
	path := testutil.SampleDocumentFile(t)

	cfg, err := ParseFile(path, "unit-01")
	require.NoError(t, err)
	require.Len(t, cfg.Points, 2)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	require.NotNil(t, pt)
	require.InDelta(t, 0.578, pt.Float(field.OffsetX), 1e-12)
	pt.SetFloat(field.OffsetX, 0.598)

	require.NoError(t, WriteFile(cfg, path, true))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	want := strings.Replace(string(testutil.SampleDocument()), "<x>0.578</x>", "<x>0.598</x>", 1)
	assert.Equal(t, want, string(written))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	res, err := Validate(path, validate.LevelContent)
	require.NoError(t, err)
	assert.True(t, res.OK(), "errors: %v", res.Errors)

	meta, err := Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.EntryCount)
	assert.Contains(t, meta.Aliases, testutil.SampleAliasBlueSky)

	require.NoError(t, RestoreFromBackup(backups[0].Path, path))
	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(testutil.SampleDocument()), string(restored))
}

func TestFacadeParseBytes(t *testing.T) {
	cfg, err := Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)
	assert.Len(t, cfg.Points, 2)
}

func TestFacadeBackupFile(t *testing.T) {
	path := testutil.SampleDocumentFile(t)

	bak, err := BackupFile(path)
	require.NoError(t, err)
	assert.FileExists(t, bak)

	data, err := os.ReadFile(bak)
	require.NoError(t, err)
	assert.Equal(t, string(testutil.SampleDocument()), string(data))
}

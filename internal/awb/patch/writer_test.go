package patch

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/backup"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/parse"
	"github.com/banshee-data/awbmap/internal/fsutil"
	"github.com/banshee-data/awbmap/internal/testutil"
	"github.com/banshee-data/awbmap/internal/timeutil"
)

const target = "tune/awb_map.xml"

type testAudit struct {
	parseID    string
	path       string
	editCount  int
	backupPath string
	calls      int
}

func (a *testAudit) RecordWrite(parseID, targetPath string, editCount int, backupPath string) error {
	a.parseID = parseID
	a.path = targetPath
	a.editCount = editCount
	a.backupPath = backupPath
	a.calls++
	return nil
}

// newTestWriter wires a writer and backup service onto one in-memory
// filesystem holding the sample document.
func newTestWriter(t *testing.T) (*Writer, *fsutil.MemoryFileSystem, *awb.MapConfiguration) {
	t.Helper()

	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile(target, testutil.SampleDocument(), 0644))

	reg := field.DefaultRegistry()
	w := NewWriter(reg)
	w.FS = mem
	w.Backups = &backup.Service{
		FS:        mem,
		Clock:     timeutil.NewMockClock(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)),
		Retention: backup.DefaultRetention,
	}

	cfg, err := parse.NewParser(reg).Parse(testutil.SampleDocument(), "")
	require.NoError(t, err)
	return w, mem, cfg
}

func readFile(t *testing.T, mem *fsutil.MemoryFileSystem, name string) string {
	t.Helper()
	data, err := mem.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestWriteSingleFieldChange(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	require.NotNil(t, pt)
	pt.SetFloat(field.OffsetX, 0.598)

	require.NoError(t, w.Write(cfg, target, true))

	want := strings.Replace(string(testutil.SampleDocument()), "<x>0.578</x>", "<x>0.598</x>", 1)
	assert.Equal(t, want, readFile(t, mem, target),
		"every byte except the changed value must survive")
}

func TestWriteUnchangedIsNoOp(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	require.NoError(t, w.Write(cfg, target, true))

	assert.Equal(t, string(testutil.SampleDocument()), readFile(t, mem, target))
	assert.False(t, mem.Exists("tune/backups"), "no backup for a no-op write")
}

func TestWriteIsIdempotent(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	pt.SetFloat(field.Weight, 12)

	require.NoError(t, w.Write(cfg, target, false))
	after := readFile(t, mem, target)

	require.NoError(t, w.Write(cfg, target, false))
	assert.Equal(t, after, readFile(t, mem, target))
}

func TestWriteEquivalentSpellingIsNoChange(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	// 0.5780 and 0.578 are the same value; the on-file spelling is already
	// canonical-equivalent, so no edit is produced.
	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	pt.SetFloat(field.OffsetX, 0.5780)

	require.NoError(t, w.Write(cfg, target, false))
	assert.Equal(t, string(testutil.SampleDocument()), readFile(t, mem, target))
}

func TestWriteSurvivesRecordReorder(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	// Reverse the in-memory order. Records resolve by alias, so the patch
	// must land in the same bytes regardless.
	for i, j := 0, len(cfg.Points)-1; i < j; i, j = i+1, j-1 {
		cfg.Points[i], cfg.Points[j] = cfg.Points[j], cfg.Points[i]
	}
	cfg.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.OffsetX, 0.598)

	require.NoError(t, w.Write(cfg, target, false))

	want := strings.Replace(string(testutil.SampleDocument()), "<x>0.578</x>", "<x>0.598</x>", 1)
	assert.Equal(t, want, readFile(t, mem, target))
}

func TestWriteFailsClosedOnUnknownAlias(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	pt.Alias = "Ghost"
	pt.SetFloat(field.OffsetX, 0.598)

	err := w.Write(cfg, target, true)
	var nf *awb.NodeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Ghost", nf.Alias)

	assert.Equal(t, string(testutil.SampleDocument()), readFile(t, mem, target),
		"failed write must not touch the file")
	assert.False(t, mem.Exists("tune/backups"))
}

func TestWriteCreatesBackup(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	cfg.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.OffsetX, 0.598)
	require.NoError(t, w.Write(cfg, target, true))

	backupPath := "tune/backups/awb_map_backup_20260314_092653.xml"
	require.True(t, mem.Exists(backupPath), "backup file missing")
	assert.Equal(t, string(testutil.SampleDocument()), readFile(t, mem, backupPath),
		"backup must hold the pre-write bytes")
}

func TestWriteSkipsBackupWhenNotAsked(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	cfg.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.OffsetX, 0.598)
	require.NoError(t, w.Write(cfg, target, false))
	assert.False(t, mem.Exists("tune/backups"))
}

func TestWriteSecondNodeFields(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	pt := cfg.PointByAlias(testutil.SampleAliasBlueSky)
	pt.TransStep = 5
	pt.Enabled = false

	require.NoError(t, w.Write(cfg, target, false))

	got := readFile(t, mem, target)
	want := strings.Replace(string(testutil.SampleDocument()), "<TransStep>2</TransStep>", "<TransStep>5</TransStep>", 1)
	want = strings.Replace(want,
		"<TransStep>5</TransStep>\n\t\t<Enable>1</Enable>",
		"<TransStep>5</TransStep>\n\t\t<Enable>0</Enable>", 1)
	assert.Equal(t, want, got)
}

func TestWriteBaseBoundary(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	cfg.Base.SetFloat(field.OffsetX, 0.52)
	require.NoError(t, w.Write(cfg, target, false))

	want := strings.Replace(string(testutil.SampleDocument()), "<x>0.512</x>", "<x>0.52</x>", 1)
	assert.Equal(t, want, readFile(t, mem, target))
}

func TestWriteRecordsAudit(t *testing.T) {
	w, _, cfg := newTestWriter(t)
	audit := &testAudit{}
	w.Audit = audit

	cfg.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.OffsetX, 0.598)
	require.NoError(t, w.Write(cfg, target, true))

	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, cfg.ParseID, audit.parseID)
	assert.Equal(t, target, audit.path)
	assert.Equal(t, 1, audit.editCount)
	assert.NotEmpty(t, audit.backupPath)
}

func TestWriteAuditSkippedForNoOp(t *testing.T) {
	w, _, cfg := newTestWriter(t)
	audit := &testAudit{}
	w.Audit = audit

	require.NoError(t, w.Write(cfg, target, true))
	assert.Zero(t, audit.calls)
}

func TestWriteNilConfiguration(t *testing.T) {
	w, _, _ := newTestWriter(t)

	err := w.Write(nil, target, false)
	assert.True(t, errors.Is(err, awb.ErrNilConfiguration))

	err = w.Write(&awb.MapConfiguration{}, target, false)
	assert.True(t, errors.Is(err, awb.ErrNilConfiguration))
}

func TestWriteMissingTarget(t *testing.T) {
	w, _, cfg := newTestWriter(t)

	err := w.Write(cfg, "tune/gone.xml", false)
	var we *awb.WriteError
	require.ErrorAs(t, err, &we)
}

func TestWriteAfterExternalEdit(t *testing.T) {
	w, mem, cfg := newTestWriter(t)

	// First write populates the alias index.
	cfg.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.OffsetX, 0.598)
	require.NoError(t, w.Write(cfg, target, false))

	// Another tool rewrites the file, swapping the two entry pairs' tags.
	// The next write must re-resolve against the live text, not the stale
	// index, and still land the edit on the aliased entry.
	swapped := strings.ReplaceAll(readFile(t, mem, target), "offset_map01", "offset_mapXX")
	swapped = strings.ReplaceAll(swapped, "offset_map02", "offset_map01")
	swapped = strings.ReplaceAll(swapped, "offset_mapXX", "offset_map02")
	require.NoError(t, mem.WriteFile(target, []byte(swapped), 0644))

	cfg2, err := parse.NewParser(w.Registry).Parse([]byte(swapped), "")
	require.NoError(t, err)
	cfg2.PointByAlias(testutil.SampleAliasBlueSky).SetFloat(field.Weight, 9)
	require.NoError(t, w.Write(cfg2, target, false))

	got := readFile(t, mem, target)
	assert.Contains(t, got, "<weight>9</weight>")
	assert.NotContains(t, got, "<weight>8</weight>")
}

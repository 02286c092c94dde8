package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/exif"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening runs migrations against an up-to-date schema without error.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecordSession(t *testing.T) {
	s := newTestStore(t)

	cfg := &awb.MapConfiguration{
		ParseID:     "session-1",
		SourcePath:  "tune/awb_map.xml",
		DeviceLabel: "unit-01",
		ParsedAt:    time.Now(),
		Points:      []*awb.MapPoint{awb.NewMapPoint("offset_map01", "A")},
	}
	require.NoError(t, s.RecordSession(cfg))

	var count int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM awb_sessions WHERE session_id = ?`, "session-1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWriteAuditTrail(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordWrite("session-1", "tune/awb_map.xml", 2, "tune/backups/b1.xml"))
	time.Sleep(time.Millisecond)
	require.NoError(t, s.RecordWrite("session-2", "tune/awb_map.xml", 1, ""))
	require.NoError(t, s.RecordWrite("session-3", "other.xml", 5, ""))

	audits, err := s.ListWrites("tune/awb_map.xml")
	require.NoError(t, err)
	require.Len(t, audits, 2)

	// Newest first.
	assert.Equal(t, "session-2", audits[0].SessionID)
	assert.Equal(t, 1, audits[0].EditCount)
	assert.Empty(t, audits[0].BackupPath)
	assert.Equal(t, "session-1", audits[1].SessionID)
	assert.Equal(t, "tune/backups/b1.xml", audits[1].BackupPath)
}

func TestFramesAndMatches(t *testing.T) {
	s := newTestStore(t)

	frames := []exif.Frame{
		{BV: 8, CCT: 6200, IR: 0.1, RpG: 0.55, BpG: 0.70, SourceFile: "f.csv", SourceRow: 2},
		{BV: 1, CCT: 4000, IR: 0.5, RpG: 0.60, BpG: 0.45, SourceFile: "f.csv", SourceRow: 3},
		{BV: 20, CCT: 9000, IR: 0.9, RpG: 0.50, BpG: 0.50, SourceFile: "f.csv", SourceRow: 4},
	}
	ids, err := s.InsertFrames("import-1", frames)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	matches := []exif.Match{
		{Frame: frames[0], Alias: "1_BlueSky_Bright", Matched: true},
		{Frame: frames[1], Alias: "2_Indoor_TL84", Matched: true},
		{Frame: frames[2]},
	}
	require.NoError(t, s.RecordMatches("import-1", ids, matches))

	counts, err := s.MatchCounts("import-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"1_BlueSky_Bright": 1,
		"2_Indoor_TL84":    1,
	}, counts)
}

func TestRecordMatchesLengthMismatch(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordMatches("import-1", []string{"a"}, nil)
	require.Error(t, err)
}

func TestMatchCountsEmptyImport(t *testing.T) {
	s := newTestStore(t)
	counts, err := s.MatchCounts("nope")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

package patch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/backup"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/locate"
	"github.com/banshee-data/awbmap/internal/fsutil"
	"github.com/banshee-data/awbmap/internal/monitoring"
)

// Second-node element names the writer understands. Alias and polygon
// rewriting stays out of the patch path: the alias is the record's identity
// and rewriting it would orphan the node-pair.
const (
	rangeElement     = "range"
	transStepElement = "TransStep"
	enableElement    = "Enable"
)

// AuditSink receives a record of each completed write. Implementations must
// not fail the write; errors are logged and dropped.
type AuditSink interface {
	RecordWrite(parseID, targetPath string, editCount int, backupPath string) error
}

// Writer projects mutated records back onto the on-disk document. The patch
// is always computed against the live file, not any cached copy, and either
// every computed edit lands or none does.
type Writer struct {
	FS       fsutil.FileSystem
	Registry *field.Registry
	Backups  *backup.Service

	// Audit, when set, records completed writes.
	Audit AuditSink

	// idx caches the alias mapping for the document bytes last scanned.
	// Invalidated whenever the on-disk text changes, including by our own
	// rename.
	idx *locate.Index
}

// NewWriter returns a writer with OS filesystem and a default backup
// service, bound to reg.
func NewWriter(reg *field.Registry) *Writer {
	return &Writer{
		FS:       fsutil.OSFileSystem{},
		Registry: reg,
		Backups:  backup.NewService(),
	}
}

// Write diffs cfg against the current on-disk text of path and splices the
// changed field values in, preserving every other byte. With makeBackup set
// a timestamped copy is taken before the file is replaced; a failed backup
// aborts the write. The final write is a temp file plus atomic rename.
func (w *Writer) Write(cfg *awb.MapConfiguration, path string, makeBackup bool) error {
	if cfg == nil || (cfg.Base == nil && len(cfg.Points) == 0) {
		return awb.ErrNilConfiguration
	}

	doc, err := w.FS.ReadFile(path)
	if err != nil {
		return &awb.WriteError{Path: path, Msg: "read target", Err: err}
	}
	if !w.idx.Valid(doc) {
		w.idx = locate.NewIndex(doc)
	}

	var edits []Edit

	if cfg.Base != nil {
		first, second, ok := locate.Pair(doc, awb.BaseBoundaryTag)
		if !ok {
			return &awb.NodeNotFoundError{Tag: awb.BaseBoundaryTag}
		}
		recEdits, err := w.diffRecord(doc, cfg.Base, first, second, true)
		if err != nil {
			return &awb.WriteError{Path: path, Msg: awb.BaseBoundaryTag, Err: err}
		}
		edits = append(edits, recEdits...)
	}

	for _, pt := range cfg.Points {
		span, tag, ok := w.idx.Resolve(doc, pt.Alias)
		if !ok {
			return &awb.NodeNotFoundError{Tag: pt.Tag, Alias: pt.Alias}
		}
		_, second, _ := locate.Pair(doc, tag)
		recEdits, err := w.diffRecord(doc, pt, span, second, false)
		if err != nil {
			return &awb.WriteError{Path: path, Msg: fmt.Sprintf("entry %q", pt.Alias), Err: err}
		}
		edits = append(edits, recEdits...)
	}

	if len(edits) == 0 {
		monitoring.Debugf("patch: %s unchanged, skipping write", path)
		return nil
	}

	patched, err := applyEdits(doc, edits)
	if err != nil {
		return &awb.WriteError{Path: path, Msg: "apply edits", Err: err}
	}

	backupPath := ""
	if makeBackup {
		bp, err := w.Backups.Backup(path)
		if err != nil {
			// Policy: never write un-backed-up when a backup was asked for.
			return err
		}
		backupPath = bp
	}

	perm := os.FileMode(0644)
	if info, err := w.FS.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := w.FS.WriteFileAtomic(path, patched, perm); err != nil {
		return &awb.WriteError{Path: path, Msg: "replace file", Err: err}
	}

	// The on-disk text is new; the alias mapping must be rebuilt next time.
	w.idx = nil

	monitoring.Logf("patch: %s: %d field edit(s) applied", path, len(edits))
	if w.Audit != nil {
		if err := w.Audit.RecordWrite(cfg.ParseID, path, len(edits), backupPath); err != nil {
			monitoring.Logf("patch: audit record failed: %v", err)
		}
	}
	return nil
}

// diffRecord compares every mutable field of one record against the text
// currently at its span and returns the required edits. base records skip
// range-category fields and the second-node fragment.
func (w *Writer) diffRecord(doc []byte, pt *awb.MapPoint, first, second locate.Span, isBase bool) ([]Edit, error) {
	var edits []Edit

	rangeSpan, hasRange := locate.ChildSpan(doc, first, rangeElement)

	for _, def := range w.Registry.All() {
		if isBase && def.Category == field.CategoryRange {
			continue
		}

		mem, ok := pt.Field(def.ID)
		if !ok {
			mem = def.Default
		}
		want := def.Type.Canonical(mem)
		defText := def.Type.Canonical(def.Default)

		base := first
		if def.Category == field.CategoryRange {
			if !hasRange {
				if want == defText {
					continue
				}
				return nil, fmt.Errorf("field %s: no <%s> node to patch", def.ID, rangeElement)
			}
			base = rangeSpan
		}

		elem := base
		found := true
		for _, seg := range def.Path {
			elem, found = locate.ChildSpan(doc, elem, seg)
			if !found {
				break
			}
		}
		if !found {
			if want == defText {
				continue
			}
			return nil, fmt.Errorf("field %s: element path %v not present", def.ID, def.Path)
		}

		vspan, ok := locate.ValueSpan(doc, elem)
		if !ok {
			// Self-closing leaf carries no text to replace.
			if want == defText {
				continue
			}
			return nil, fmt.Errorf("field %s: leaf is self-closing, cannot patch", def.ID)
		}

		cur := string(doc[vspan.Start:vspan.End])
		if canonicalText(def.Type, cur) == want {
			continue
		}
		edits = append(edits, Edit{Start: vspan.Start, End: vspan.End, Text: want})
	}

	if !isBase {
		secEdits, err := w.diffSecondNode(doc, pt, second)
		if err != nil {
			return nil, err
		}
		edits = append(edits, secEdits...)
	}
	return edits, nil
}

// diffSecondNode patches the identity fragment's mutable leaves: the
// transition step and the enable flag.
func (w *Writer) diffSecondNode(doc []byte, pt *awb.MapPoint, second locate.Span) ([]Edit, error) {
	var edits []Edit

	if e, err := w.diffLeaf(doc, second, transStepElement, strconv.Itoa(pt.TransStep), "0"); err != nil {
		return nil, err
	} else if e != nil {
		edits = append(edits, *e)
	}

	want := "0"
	if pt.Enabled {
		want = "1"
	}
	if e, err := w.diffLeaf(doc, second, enableElement, want, "1"); err != nil {
		return nil, err
	} else if e != nil {
		edits = append(edits, *e)
	}
	return edits, nil
}

func (w *Writer) diffLeaf(doc []byte, parent locate.Span, name, want, missingDefault string) (*Edit, error) {
	elem, ok := locate.ChildSpan(doc, parent, name)
	if !ok {
		if want == missingDefault {
			return nil, nil
		}
		return nil, fmt.Errorf("leaf <%s> not present, cannot patch to %q", name, want)
	}
	vspan, ok := locate.ValueSpan(doc, elem)
	if !ok {
		if want == missingDefault {
			return nil, nil
		}
		return nil, fmt.Errorf("leaf <%s> is self-closing, cannot patch", name)
	}
	if strings.TrimSpace(string(doc[vspan.Start:vspan.End])) == want {
		return nil, nil
	}
	return &Edit{Start: vspan.Start, End: vspan.End, Text: want}, nil
}

// canonicalText renders the on-file text of a field in canonical form so
// "0.50" and "0.5" compare equal. Unparsable text never matches and is
// replaced.
func canonicalText(t field.Type, raw string) string {
	v, err := t.Parse(raw)
	if err != nil {
		return "\x00unparsable"
	}
	return t.Canonical(v)
}

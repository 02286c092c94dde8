package awb

import (
	"errors"
	"fmt"
)

// ErrNilConfiguration is returned by the writer when handed a nil or empty
// configuration. The target file is not touched.
var ErrNilConfiguration = errors.New("nil or empty map configuration")

// ParseError reports malformed XML or a structural problem that makes the
// whole document undecodable. It is fatal: there is no partial result.
type ParseError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "document"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NodeNotFoundError reports that a record's alias could not be re-resolved
// to a node-pair at write time. The write aborts with no file modification.
type NodeNotFoundError struct {
	Tag   string
	Alias string
}

func (e *NodeNotFoundError) Error() string {
	if e.Alias == "" {
		return fmt.Sprintf("no node-pair found for tag %q", e.Tag)
	}
	return fmt.Sprintf("no node-pair found for alias %q (last known tag %q)", e.Alias, e.Tag)
}

// WriteError reports a failure during patch computation or the final
// temp-write/rename. Either every computed edit lands or none does.
type WriteError struct {
	Path string
	Msg  string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("write %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("write %s: %s", e.Path, e.Msg)
}

func (e *WriteError) Unwrap() error { return e.Err }

// BackupError reports a failed backup copy. When a backup was requested the
// surrounding write aborts rather than proceeding un-backed-up.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// ValidationError reports a failed validation run (as opposed to a run that
// completed and found problems, which is reported in the result).
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

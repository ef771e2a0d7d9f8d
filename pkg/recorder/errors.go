package recorder

import (
	"errors"
	"fmt"
)

var (
	ErrTableFull     = errors.New("table capacity exceeded")
	ErrRecorderState = errors.New("operation not allowed in recorder state")
	ErrUnknownOption = errors.New("unknown io option")
	ErrInvalidOption = errors.New("invalid io option value")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ErrWriteTable represents an error when appending rows to a table.
type ErrWriteTable struct {
	TableName string
	Event     int32
	Err       error
}

func (e *ErrWriteTable) Error() string {
	return fmt.Sprintf("error writing event %d to table %q: %v", e.Event, e.TableName, e.Err)
}

func (e *ErrWriteTable) Unwrap() error {
	return e.Err
}

// ConsistencyWarning flags a row placed at an id other than the next
// expected index. It is logged and counted; recording carries on.
type ConsistencyWarning struct {
	Table    string
	Event    int32
	Expected int
	Got      int
	Reason   string
}

func (w *ConsistencyWarning) Error() string {
	if w.Reason != "" {
		return fmt.Sprintf("%s table, event %d: %s (row %d, next row %d)", w.Table, w.Event, w.Reason, w.Got, w.Expected)
	}
	return fmt.Sprintf("%s table, event %d: index %d does not match next row %d", w.Table, w.Event, w.Got, w.Expected)
}

package mbutil

import (
	"fmt"

	"github.com/smellman/mbutil/tile"
)

// PreconditionError reports a source or destination that is not in the
// state a conversion requires. It is raised before any write happens.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// FormatError reports malformed metadata or a corrupt container schema.
// Always fatal: metadata integrity cannot be inferred.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// TileError reports a single unreadable or inconsistent tile. Fatal by
// default; lenient runs skip the tile and continue.
type TileError struct {
	ID   tile.ID
	Path string
	Err  error
}

func (e *TileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("tile %s (%s): %v", e.ID, e.Path, e.Err)
	}
	return fmt.Sprintf("tile %s: %v", e.ID, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

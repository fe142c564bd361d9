package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPlanNotFound is returned when neither a draft nor a locked plan
// matches the requested id.
var ErrPlanNotFound = errors.New("plan not found")

// DataUnavailableError reports a single domain feed that could not be
// fetched live. It is recoverable: the aggregator falls back to cached
// facts and tags the affected trainsets as stale.
type DataUnavailableError struct {
	Domain string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("feed %q unavailable: %v", e.Domain, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// FatalIncompleteDataError aborts a draft computation: a domain is missing
// for more of the fleet than the configured threshold allows, live and
// cached data combined.
type FatalIncompleteDataError struct {
	Domain    string
	Missing   int
	FleetSize int
}

func (e *FatalIncompleteDataError) Error() string {
	return fmt.Sprintf("fatal incomplete data: domain %q missing for %d of %d trainsets", e.Domain, e.Missing, e.FleetSize)
}

// ValidationError reports a structurally invalid input, most commonly a
// weight profile whose weights are negative or do not sum to one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError reports a concurrent lock attempt on the same depot.
type ConflictError struct {
	DepotID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("another lock is in flight for depot %q", e.DepotID)
}

// MissingOverrideJustificationError reports manual-override decisions that
// have no attached justification at lock time.
type MissingOverrideJustificationError struct {
	TrainsetIDs []string
}

func (e *MissingOverrideJustificationError) Error() string {
	return fmt.Sprintf("missing override justification for trainsets: %s", strings.Join(e.TrainsetIDs, ", "))
}

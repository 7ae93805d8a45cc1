// Package lifecycle holds the transition rules for a project's analysis job.
// Trigger, callback ingestion and the stale-job reaper all consult Apply, so
// the legality of a status change is decided in exactly one place.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/listingscope/pkg/models"
)

var (
	// ErrIllegalTransition is returned when an event cannot move a project
	// out of its current state, e.g. a processing callback on a finished job.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrInvalidStatus is returned when a callback names a status that is not
	// one of processing, completed or error.
	ErrInvalidStatus = errors.New("invalid status")
)

// EventKind identifies what is asking for a transition.
type EventKind int

const (
	// Trigger is a user asking for analysis to start.
	Trigger EventKind = iota + 1
	// Callback is the workflow engine reporting progress or an outcome.
	Callback
	// Timeout is the reaper giving up on a job that never called back.
	Timeout
)

func (k EventKind) String() string {
	switch k {
	case Trigger:
		return "trigger"
	case Callback:
		return "callback"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Event is a request to transition. Status is only read for callbacks.
type Event struct {
	Kind   EventKind
	Status models.ProjectStatus
}

// TriggerEvent returns the event for a user-initiated dispatch.
func TriggerEvent() Event { return Event{Kind: Trigger} }

// CallbackEvent returns the event for an engine callback reporting status.
func CallbackEvent(status models.ProjectStatus) Event {
	return Event{Kind: Callback, Status: status}
}

// TimeoutEvent returns the event the reaper applies to stale jobs.
func TimeoutEvent() Event { return Event{Kind: Timeout} }

// Apply returns the status a project in state current moves to on ev, or an
// error wrapping ErrIllegalTransition / ErrInvalidStatus. It has no side effects.
//
//	pending     --trigger-->            processing
//	processing  --trigger-->            processing   (re-dispatch)
//	processing  --callback(any)-->      processing | completed | error
//	terminal    --callback(terminal)--> completed | error   (last write wins)
//	processing  --timeout-->            error
func Apply(current models.ProjectStatus, ev Event) (models.ProjectStatus, error) {
	if !current.Valid() {
		return "", fmt.Errorf("%w: current status %q", ErrInvalidStatus, current)
	}

	switch ev.Kind {
	case Trigger:
		switch current {
		case models.ProjectStatusPending, models.ProjectStatusProcessing:
			return models.ProjectStatusProcessing, nil
		}

	case Callback:
		target := ev.Status
		if target != models.ProjectStatusProcessing && !target.Terminal() {
			return "", fmt.Errorf("%w: callback status %q", ErrInvalidStatus, target)
		}
		switch {
		case current == models.ProjectStatusProcessing:
			return target, nil
		case current.Terminal() && target.Terminal():
			return target, nil
		}
		return "", illegal(current, ev, target)

	case Timeout:
		if current == models.ProjectStatusProcessing {
			return models.ProjectStatusError, nil
		}

	default:
		return "", fmt.Errorf("%w: unknown event kind %d", ErrIllegalTransition, ev.Kind)
	}

	return "", illegal(current, ev, "")
}

func illegal(current models.ProjectStatus, ev Event, target models.ProjectStatus) error {
	if target != "" {
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, ev.Kind, current, target)
	}
	return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev.Kind, current)
}

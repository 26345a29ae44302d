package tasks

import (
	"fmt"

	"github.com/oe/sunrain-sub001/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Merge
	Dedupe
	Validate
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Merge:
		return "merge"
	case Dedupe:
		return "dedupe"
	case Validate:
		return "validate"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchSourceUpdate(step, total int, src services.SourceClient) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching content from %s...", src.Name()),
	}
}

func sourceDoneUpdate(step, total int, res SourceResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d records)", step, total, res.Name, len(res.Records))
	if res.Err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Name, res.Err)
	}
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func mergeUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Merge,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merged %d records", count),
	}
}

func dedupeUpdate(kept, merges int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dedupe,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d cross-source duplicates (%d remain)", merges, kept),
	}
}

func validateUpdate(kept, rejected int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d records passed validation, %d rejected", kept, rejected),
	}
}

func completeUpdate(res *RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Done: %d records", len(res.Records)),
		Data:    res,
	}
}

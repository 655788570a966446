package tasks

import (
	"fmt"

	"github.com/desertthunder/cloudmatch/internal/models"
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
	LoadPage Phase = iota
	MatchSongs
)

func (p Phase) String() string {
	switch p {
	case LoadPage:
		return "load_page"
	case MatchSongs:
		return "match_songs"
	default:
		return ""
	}
}

// sendProgress sends without blocking; updates are dropped when nobody is reading.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadPageUpdate(page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPage,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading cloud songs (page %d)...", page),
	}
}

func matchStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchSongs,
		Total:   total,
		Message: fmt.Sprintf("Matching %d songs...", total),
	}
}

func matchCompletedUpdate(step, total int, entry models.MatchLogEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, entry.SongName, entry.MatchSongID),
		Data:    entry,
	}
}

func matchFailedUpdate(step, total int, job MatchJob, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s -> %s: %v", step, total, job.SongID, job.TargetID, err),
	}
}

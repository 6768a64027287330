package agenda

import (
	"context"
	"time"
)

// Conflict is an existing appointment sharing a worker or a position with a
// candidate during an overlapping time range.
type Conflict struct {
	Appointment  Appointment `json:"appointment"`
	SameWorker   bool        `json:"sameWorker"`
	SamePosition bool        `json:"samePosition"`
}

// Overlaps reports whether the half-open ranges [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FindConflicts returns the appointments in existing that double-book
// candidate's worker or position. candidate itself (same ID) is skipped.
// Double booking is never rejected by the store; callers decide what to do
// with the result.
func FindConflicts(existing []Appointment, candidate Appointment) []Conflict {
	var out []Conflict
	if !candidate.End.After(candidate.Start) {
		return out
	}
	for _, a := range existing {
		if candidate.ID != "" && a.ID == candidate.ID {
			continue
		}
		sameWorker := candidate.WorkerID != "" && a.WorkerID == candidate.WorkerID
		samePosition := candidate.PositionID != "" && a.PositionID == candidate.PositionID
		if !sameWorker && !samePosition {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, a.Start, a.End) {
			out = append(out, Conflict{Appointment: a, SameWorker: sameWorker, SamePosition: samePosition})
		}
	}
	return out
}

// Overlapping loads the persisted appointments and returns those conflicting
// with candidate.
func (s *Store) Overlapping(ctx context.Context, candidate Appointment) ([]Conflict, error) {
	appts, err := s.Appointments(ctx)
	if err != nil {
		return nil, err
	}
	return FindConflicts(appts, candidate), nil
}

package questionnaire

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// TickerValidator abstracts the per-ticker validation round-trip
type TickerValidator interface {
	ValidateTicker(ctx context.Context, ticker string) bool
}

// PositionField names a mutable PositionRow field
type PositionField string

const (
	FieldTicker PositionField = "ticker"
	FieldAmount PositionField = "amount"
	FieldUnits  PositionField = "units"
)

// ChangeFunc receives the full row snapshot after every mutation
type ChangeFunc func(rows []models.PositionRow)

// PositionSet manages the ordered position rows for one detailed asset
// class. It always contains at least one row: removing the last row
// synthesizes a fresh empty one.
//
// Ticker validation is fire-and-forget. Each row carries a sequence number
// that is bumped on every commit or reset; a validation result is applied
// only if the row's sequence still matches the request that produced it,
// so stale responses from superseded edits are discarded.
type PositionSet struct {
	mu        sync.Mutex
	validator TickerValidator
	onChange  ChangeFunc
	rows      []*positionRow
}

type positionRow struct {
	models.PositionRow
	seq uint64
}

// NewPositionSet creates a set seeded with one empty row. onChange may be
// nil; when set it is invoked outside the set's lock after each mutation.
func NewPositionSet(validator TickerValidator, onChange ChangeFunc) *PositionSet {
	s := &PositionSet{validator: validator, onChange: onChange}
	s.rows = append(s.rows, newPositionRow())
	return s
}

func newPositionRow() *positionRow {
	return &positionRow{PositionRow: models.PositionRow{
		ID:    uuid.NewString(),
		Units: models.UnitsShares,
	}}
}

// Rows returns a snapshot of the current rows in order
func (s *PositionSet) Rows() []models.PositionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PositionSet) snapshotLocked() []models.PositionRow {
	rows := make([]models.PositionRow, len(s.rows))
	for i, r := range s.rows {
		rows[i] = r.Clone()
	}
	return rows
}

func (s *PositionSet) notify(rows []models.PositionRow) {
	if s.onChange != nil {
		s.onChange(rows)
	}
}

// AddRow appends a new empty row and returns the updated snapshot
func (s *PositionSet) AddRow() []models.PositionRow {
	s.mu.Lock()
	s.rows = append(s.rows, newPositionRow())
	rows := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(rows)
	return rows
}

// UpdateField replaces one field of the row matching rowID. Ticker input is
// upper-cased as typed but keeps its last validation result; clearing the
// ticker is a logical reset and returns validity to unknown. Updating a
// field never triggers validation by itself.
func (s *PositionSet) UpdateField(rowID string, field PositionField, value string) []models.PositionRow {
	s.mu.Lock()
	if row := s.findLocked(rowID); row != nil {
		switch field {
		case FieldTicker:
			row.Ticker = strings.ToUpper(value)
			if strings.TrimSpace(row.Ticker) == "" {
				row.Valid = nil
				row.seq++
			}
		case FieldAmount:
			row.Amount = value
		case FieldUnits:
			if models.Units(value) == models.UnitsUSD {
				row.Units = models.UnitsUSD
			} else {
				row.Units = models.UnitsShares
			}
		}
	}
	rows := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(rows)
	return rows
}

// CommitTicker stores the finished ticker edit (trimmed, upper-cased),
// resets the row's validity to unknown, and kicks off an asynchronous
// validation round-trip. The result is applied only if no newer commit or
// reset has happened for the row in the meantime.
func (s *PositionSet) CommitTicker(ctx context.Context, rowID, ticker string) []models.PositionRow {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	s.mu.Lock()
	row := s.findLocked(rowID)
	var seq uint64
	if row != nil {
		row.Ticker = ticker
		row.Valid = nil
		row.seq++
		seq = row.seq
	}
	rows := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(rows)

	if row == nil || ticker == "" {
		return rows
	}

	go func() {
		ok := s.validator.ValidateTicker(ctx, ticker)

		s.mu.Lock()
		row := s.findLocked(rowID)
		if row == nil || row.seq != seq {
			s.mu.Unlock()
			return
		}
		row.Valid = &ok
		resolved := s.snapshotLocked()
		s.mu.Unlock()

		s.notify(resolved)
	}()

	return rows
}

// RemoveRow deletes the row matching rowID. A fresh empty row is inserted
// immediately if the set would otherwise become empty.
func (s *PositionSet) RemoveRow(rowID string) []models.PositionRow {
	s.mu.Lock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.ID != rowID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	if len(s.rows) == 0 {
		s.rows = append(s.rows, newPositionRow())
	}
	rows := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(rows)
	return rows
}

func (s *PositionSet) findLocked(rowID string) *positionRow {
	for _, r := range s.rows {
		if r.ID == rowID {
			return r
		}
	}
	return nil
}

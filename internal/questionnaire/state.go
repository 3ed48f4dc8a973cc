package questionnaire

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// Backend captures the advisory operations the questionnaire consumes
type Backend interface {
	TickerValidator
	SubmitQuestionnaire(ctx context.Context, sessionID string, payload *models.SubmissionPayload) error
}

// State is the single source of truth for all answers and the derived
// completion and validity gates. It lives for one questionnaire session
// and is discarded after the payload is submitted.
//
// Completion (IsComplete) and submission (BuildSubmissionPayload) use
// different strictness: completion does not require resolved ticker
// validity, submission does. The two gates diverge on purpose; see the
// design notes before unifying them in either direction.
type State struct {
	mu        sync.Mutex
	sessionID string
	backend   Backend
	questions []models.Question
	answers   map[string]*answer
	positions map[string]*PositionSet
	amounts   map[string]*AssetAmount
	onChange  func()
}

// answer holds one question's raw input
type answer struct {
	value     string   // single-select or free-text questions
	selected  []string // multi-select questions, in selection order
	otherText string   // free-text override for the "Other" option
}

// NewState creates a questionnaire for one session. onChange may be nil;
// it fires after any mutation, including asynchronous ticker resolutions.
func NewState(sessionID string, backend Backend, onChange func()) *State {
	return &State{
		sessionID: sessionID,
		backend:   backend,
		questions: Catalog(),
		answers:   make(map[string]*answer),
		positions: make(map[string]*PositionSet),
		amounts:   make(map[string]*AssetAmount),
		onChange:  onChange,
	}
}

// Questions returns the question catalog in display order
func (s *State) Questions() []models.Question {
	return s.questions
}

func (s *State) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *State) answerFor(questionID string) *answer {
	a, ok := s.answers[questionID]
	if !ok {
		a = &answer{}
		s.answers[questionID] = a
	}
	return a
}

// SetAnswer records a single-select or free-text answer. Choosing anything
// but the literal "Other" clears any stale "Other" override text.
func (s *State) SetAnswer(questionID, value string) {
	s.mu.Lock()
	a := s.answerFor(questionID)
	a.value = value
	if value != OtherOption {
		a.otherText = ""
	}
	s.mu.Unlock()

	s.notify()
}

// SetOtherText records the free-text override bound to the "Other" branch
func (s *State) SetOtherText(questionID, text string) {
	s.mu.Lock()
	s.answerFor(questionID).otherText = text
	s.mu.Unlock()

	s.notify()
}

// ToggleMultiSelect adds or removes an option from a multi-select answer.
// Checking a holdings option lazily instantiates its backing PositionSet or
// AssetAmount; unchecking discards that state entirely, so re-checking
// starts fresh.
func (s *State) ToggleMultiSelect(questionID, option string, checked bool) {
	s.mu.Lock()
	a := s.answerFor(questionID)
	if checked {
		if !contains(a.selected, option) {
			a.selected = append(a.selected, option)
		}
		if questionID == QuestionCurrentHoldings && option != OtherOption {
			s.ensureHoldingLocked(option)
		}
	} else {
		a.selected = remove(a.selected, option)
		if option == OtherOption {
			a.otherText = ""
		}
		delete(s.positions, option)
		delete(s.amounts, option)
	}
	s.mu.Unlock()

	s.notify()
}

func (s *State) ensureHoldingLocked(label string) {
	if IsSimpleAssetClass(label) {
		if _, ok := s.amounts[label]; !ok {
			s.amounts[label] = NewAssetAmount(func(string) { s.notify() })
		}
		return
	}
	if _, ok := s.positions[label]; !ok {
		s.positions[label] = NewPositionSet(s.backend, func([]models.PositionRow) { s.notify() })
	}
}

// PositionSet returns the backing positions table for a detailed asset
// class, or nil if the class is not selected
func (s *State) PositionSet(label string) *PositionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[label]
}

// AssetAmount returns the backing USD total for a simple asset class, or
// nil if the class is not selected
func (s *State) AssetAmount(label string) *AssetAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amounts[label]
}

// effectiveAnswer renders a question's answer for completion checks and
// the payload. It returns "" while the answer is incomplete, including the
// case where "Other" is selected without override text.
func (s *State) effectiveAnswer(q models.Question, a *answer) string {
	expand := func(option string) string {
		if option != OtherOption {
			return option
		}
		text := strings.TrimSpace(a.otherText)
		if text == "" {
			return ""
		}
		return "Other: " + text
	}

	switch q.Type {
	case models.QuestionMultiSelect:
		if len(a.selected) == 0 {
			return ""
		}
		parts := make([]string, 0, len(a.selected))
		for _, option := range a.selected {
			part := expand(option)
			if part == "" {
				return ""
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, ", ")
	case models.QuestionSingleSelect:
		if a.value == "" {
			return ""
		}
		return expand(a.value)
	default:
		return strings.TrimSpace(a.value)
	}
}

// IsComplete reports whether every required question has a non-empty
// effective answer and every selected asset class has usable sub-form
// data. Rows only need a ticker and an amount here; resolved ticker
// validity is checked by BuildSubmissionPayload instead.
func (s *State) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.questions {
		a := s.answerFor(q.ID)
		if q.Required && s.effectiveAnswer(q, a) == "" {
			return false
		}
	}

	for _, label := range s.answerFor(QuestionCurrentHoldings).selected {
		if label == OtherOption {
			continue
		}
		if IsSimpleAssetClass(label) {
			amount := s.amounts[label]
			if amount == nil {
				return false
			}
			if _, ok := parsePositiveAmount(amount.Amount()); !ok {
				return false
			}
			continue
		}
		set := s.positions[label]
		if set == nil {
			return false
		}
		rows := set.Rows()
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			if strings.TrimSpace(row.Ticker) == "" || strings.TrimSpace(row.Amount) == "" {
				return false
			}
		}
	}
	return true
}

// BuildSubmissionPayload runs the strict submission gate and assembles the
// payload. Beyond IsComplete, every position row must carry a ticker that
// resolved as valid; unknown and invalid tickers both block. On failure a
// single aggregated *ValidationError is returned, intended for direct
// display. Each call stamps fresh row identifiers, everything else is a
// pure function of current state.
func (s *State) BuildSubmissionPayload() (*models.SubmissionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var problems []string
	answers := make(map[string]string)

	for _, q := range s.questions {
		a := s.answerFor(q.ID)
		effective := s.effectiveAnswer(q, a)
		if effective == "" {
			if q.Required {
				problems = append(problems, fmt.Sprintf("%q is unanswered", q.Prompt))
			}
			continue
		}
		answers[q.ID] = effective
	}

	positions := make(map[string][]models.PositionRow)
	valid := true

	for _, label := range s.answerFor(QuestionCurrentHoldings).selected {
		if label == OtherOption {
			continue
		}
		if IsSimpleAssetClass(label) {
			amount := s.amounts[label]
			text := ""
			if amount != nil {
				text = amount.Amount()
			}
			if _, ok := parsePositiveAmount(text); !ok {
				problems = append(problems, fmt.Sprintf("%s: enter a dollar amount greater than zero", label))
				continue
			}
			positions[label] = []models.PositionRow{{
				ID:     uuid.NewString(),
				Ticker: strings.ToUpper(label),
				Amount: strings.TrimSpace(text),
				Units:  models.UnitsUSD,
				Valid:  &valid,
			}}
			continue
		}

		set := s.positions[label]
		if set == nil {
			problems = append(problems, fmt.Sprintf("%s: no positions entered", label))
			continue
		}
		var finalized []models.PositionRow
		classOK := true
		for i, row := range set.Rows() {
			ticker := strings.TrimSpace(row.Ticker)
			amount := strings.TrimSpace(row.Amount)
			switch {
			case ticker == "" || amount == "":
				problems = append(problems, fmt.Sprintf("%s: position %d needs both a ticker and an amount", label, i+1))
				classOK = false
			case !row.IsValid():
				problems = append(problems, fmt.Sprintf("%s: ticker %s is unverified or invalid", label, ticker))
				classOK = false
			default:
				finalized = append(finalized, models.PositionRow{
					ID:     uuid.NewString(),
					Ticker: ticker,
					Amount: amount,
					Units:  row.Units,
					Valid:  &valid,
				})
			}
		}
		if classOK {
			positions[label] = finalized
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{
			Message: "Please fix the following before submitting: " + strings.Join(problems, "; "),
		}
	}

	return &models.SubmissionPayload{Answers: answers, Positions: positions}, nil
}

// Submit builds the payload and delivers it to the backend. A
// *ValidationError means the form needs correcting; any other error is a
// transport failure and the same payload can simply be resubmitted.
func (s *State) Submit(ctx context.Context) error {
	payload, err := s.BuildSubmissionPayload()
	if err != nil {
		return err
	}
	if err := s.backend.SubmitQuestionnaire(ctx, s.sessionID, payload); err != nil {
		return fmt.Errorf("failed to submit questionnaire: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	kept := list[:0]
	for _, item := range list {
		if item != v {
			kept = append(kept, item)
		}
	}
	return kept
}

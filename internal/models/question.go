package models

import "encoding/json"

// QuestionType distinguishes how a question is answered
type QuestionType string

const (
	// QuestionSingleSelect takes exactly one option
	QuestionSingleSelect QuestionType = "single_select"
	// QuestionMultiSelect takes any number of options
	QuestionMultiSelect QuestionType = "multi_select"
	// QuestionFreeText takes raw text
	QuestionFreeText QuestionType = "free_text"
)

// Question represents one questionnaire entry
type Question struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"prompt"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Required bool         `json:"required"`
}

// SubmissionPayload represents the finalized questionnaire output.
// Positions maps asset class labels to the rows the user entered, with
// simple dollar-amount classes materialized as a single synthetic row.
type SubmissionPayload struct {
	Answers   map[string]string        `json:"answers"`
	Positions map[string][]PositionRow `json:"positions"`
}

// WireResponses flattens the payload into the shape the backend stores:
// one string per question id, plus a "positions" key holding the positions
// map encoded as a JSON string.
func (p *SubmissionPayload) WireResponses() (map[string]string, error) {
	responses := make(map[string]string, len(p.Answers)+1)
	for id, answer := range p.Answers {
		responses[id] = answer
	}
	if len(p.Positions) > 0 {
		encoded, err := json.Marshal(p.Positions)
		if err != nil {
			return nil, err
		}
		responses["positions"] = string(encoded)
	}
	return responses, nil
}

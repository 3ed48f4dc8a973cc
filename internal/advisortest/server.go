// Package advisortest provides an in-process fake of the advisory backend
// for package tests. Routes and response shapes mirror the real API; only
// the behaviors the client core observes are modeled.
package advisortest

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// SubmitRequest records one questionnaire submission as received
type SubmitRequest struct {
	SessionID string            `json:"session_id"`
	Responses map[string]string `json:"responses"`
}

// Backend is a configurable fake advisory backend
type Backend struct {
	mu sync.Mutex

	// ValidTickers maps upper-cased symbols to their validation result;
	// unknown symbols validate as false
	ValidTickers map[string]bool
	// StreamBody is written verbatim for /agent/chat/stream
	StreamBody string
	// StreamChunkSize splits StreamBody into fixed-size writes with a
	// flush between each, so chunks land on arbitrary byte boundaries.
	// Zero writes the body in one piece.
	StreamChunkSize int
	// StreamStatus overrides the chat stream response code (default 200)
	StreamStatus int
	// FailSubmission makes /submit-questionnaire return a server error
	FailSubmission bool
	// SessionResponses is returned by /agent/session/{session_id}
	SessionResponses map[string]string
	// IntakeReply is returned by /agent/intake
	IntakeReply string
	// Recommendation is returned by /agent/recommend
	Recommendation string

	initialized []string
	submissions []SubmitRequest
}

// Router configures all fake API routes
func (b *Backend) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/validate-ticker/{ticker}", b.validateTicker).Methods("GET")
	r.HandleFunc("/init-session", b.initSession).Methods("POST")
	r.HandleFunc("/submit-questionnaire", b.submitQuestionnaire).Methods("POST")
	r.HandleFunc("/agent/chat/stream", b.chatStream).Methods("POST")
	r.HandleFunc("/agent/session/{session_id}", b.getSession).Methods("GET")
	r.HandleFunc("/agent/intake", b.intake).Methods("POST")
	r.HandleFunc("/agent/recommend", b.recommend).Methods("POST")

	return r
}

// Submissions returns every questionnaire submission received so far
func (b *Backend) Submissions() []SubmitRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SubmitRequest(nil), b.submissions...)
}

// InitializedSessions returns every session id passed to /init-session
func (b *Backend) InitializedSessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.initialized...)
}

func (b *Backend) validateTicker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := strings.ToUpper(vars["ticker"])

	b.mu.Lock()
	valid := b.ValidTickers[ticker]
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"valid": valid})
}

func (b *Backend) initSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.initialized = append(b.initialized, req.SessionID)
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session initialized successfully",
	})
}

func (b *Backend) submitQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	fail := b.FailSubmission
	if !fail {
		b.submissions = append(b.submissions, req)
	}
	b.mu.Unlock()

	if fail {
		http.Error(w, "failed to save responses", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Questionnaire responses saved successfully",
	})
}

func (b *Backend) chatStream(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	body, chunkSize, status := b.StreamBody, b.StreamChunkSize, b.StreamStatus
	b.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		http.Error(w, "stream unavailable", status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if chunkSize <= 0 {
		chunkSize = len(body)
	}
	for start := 0; start < len(body); start += chunkSize {
		end := start + chunkSize
		if end > len(body) {
			end = len(body)
		}
		_, _ = w.Write([]byte(body[start:end]))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (b *Backend) getSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	responses := b.SessionResponses
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"questionnaire_responses": responses,
	})
}

func (b *Backend) intake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		UserInput string `json:"user_input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	reply := b.IntakeReply
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"response": reply})
}

func (b *Backend) recommend(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	rec := b.Recommendation
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"recommendation": rec})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

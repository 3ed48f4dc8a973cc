package advisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-advisor/internal/advisortest"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

func newTestClient(t *testing.T, backend *advisortest.Backend) *Client {
	t.Helper()
	server := httptest.NewServer(backend.Router())
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second)
}

func TestValidateTicker(t *testing.T) {
	ctx := context.Background()
	backend := &advisortest.Backend{ValidTickers: map[string]bool{"AAPL": true}}
	client := newTestClient(t, backend)

	t.Run("known ticker validates", func(t *testing.T) {
		assert.True(t, client.ValidateTicker(ctx, "AAPL"))
	})

	t.Run("input is trimmed and upper-cased", func(t *testing.T) {
		assert.True(t, client.ValidateTicker(ctx, "  aapl "))
	})

	t.Run("unknown ticker is invalid", func(t *testing.T) {
		assert.False(t, client.ValidateTicker(ctx, "ZZZZZZ"))
	})

	t.Run("empty input resolves false without a network call", func(t *testing.T) {
		var hits int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
		}))
		defer server.Close()

		c := NewClient(server.URL, time.Second)
		assert.False(t, c.ValidateTicker(ctx, "   "))
		assert.Zero(t, hits)
	})

	t.Run("server errors resolve false rather than failing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, time.Second)
		assert.False(t, c.ValidateTicker(ctx, "AAPL"))
	})

	t.Run("unreachable backend resolves false", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		c := NewClient(server.URL, time.Second)
		assert.False(t, c.ValidateTicker(ctx, "AAPL"))
	})
}

func TestSessionEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("init session registers the id", func(t *testing.T) {
		backend := &advisortest.Backend{}
		client := newTestClient(t, backend)

		require.NoError(t, client.InitSession(ctx, "sess-42"))
		assert.Equal(t, []string{"sess-42"}, backend.InitializedSessions())
	})

	t.Run("fetch session returns stored responses", func(t *testing.T) {
		backend := &advisortest.Backend{SessionResponses: map[string]string{
			"risk_tolerance": "3 - Moderate",
		}}
		client := newTestClient(t, backend)

		responses, err := client.FetchSession(ctx, "sess-42")
		require.NoError(t, err)
		assert.Equal(t, "3 - Moderate", responses["risk_tolerance"])
	})

	t.Run("intake and recommend round-trip", func(t *testing.T) {
		backend := &advisortest.Backend{
			IntakeReply:    "Tell me about your goals.",
			Recommendation: "Hold 60/40.",
		}
		client := newTestClient(t, backend)

		reply, err := client.Intake(ctx, "sess-42", "hi")
		require.NoError(t, err)
		assert.Equal(t, "Tell me about your goals.", reply)

		rec, err := client.Recommend(ctx, "sess-42")
		require.NoError(t, err)
		assert.Equal(t, "Hold 60/40.", rec)
	})
}

func TestSubmitQuestionnaire(t *testing.T) {
	ctx := context.Background()
	valid := true
	payload := &models.SubmissionPayload{
		Answers: map[string]string{
			"investment_goal": "Growth",
			"risk_tolerance":  "3 - Moderate",
		},
		Positions: map[string][]models.PositionRow{
			"US Equity (S&P 500 / Large Cap)": {
				{ID: "row-1", Ticker: "AAPL", Amount: "10", Units: models.UnitsShares, Valid: &valid},
			},
		},
	}

	t.Run("positions travel as an embedded JSON string", func(t *testing.T) {
		backend := &advisortest.Backend{}
		client := newTestClient(t, backend)

		require.NoError(t, client.SubmitQuestionnaire(ctx, "sess-42", payload))

		submissions := backend.Submissions()
		require.Len(t, submissions, 1)
		assert.Equal(t, "sess-42", submissions[0].SessionID)
		assert.Equal(t, "Growth", submissions[0].Responses["investment_goal"])

		var positions map[string][]models.PositionRow
		require.NoError(t, json.Unmarshal([]byte(submissions[0].Responses["positions"]), &positions))
		rows := positions["US Equity (S&P 500 / Large Cap)"]
		require.Len(t, rows, 1)
		assert.Equal(t, "AAPL", rows[0].Ticker)
		assert.True(t, rows[0].IsValid())
	})

	t.Run("server failure surfaces as a transport error", func(t *testing.T) {
		backend := &advisortest.Backend{FailSubmission: true}
		client := newTestClient(t, backend)

		err := client.SubmitQuestionnaire(ctx, "sess-42", payload)
		require.Error(t, err)
		assert.Empty(t, backend.Submissions())
	})
}

func TestOpenChatStream(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the raw event body", func(t *testing.T) {
		backend := &advisortest.Backend{
			StreamBody:      "data: {\"type\":\"agent_start\",\"agent\":\"analysis\"}\n\ndata: {\"type\":\"stream_end\"}\n\n",
			StreamChunkSize: 7,
		}
		client := newTestClient(t, backend)

		body, err := client.OpenChatStream(ctx, "sess-42", "analyze my portfolio")
		require.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, backend.StreamBody, string(data))
	})

	t.Run("non-success status fails to open", func(t *testing.T) {
		backend := &advisortest.Backend{StreamStatus: http.StatusBadGateway}
		client := newTestClient(t, backend)

		_, err := client.OpenChatStream(ctx, "sess-42", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

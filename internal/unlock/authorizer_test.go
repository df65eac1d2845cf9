package unlock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/observe"
	"github.com/str-access/backend/internal/property"
	"github.com/str-access/backend/internal/reservation"
	"github.com/str-access/backend/internal/storage/models"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeReservations struct {
	payload string
	err     error
}

func (f fakeReservations) Lookup(ctx context.Context, code string) (*reservation.Found, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := models.ReservationRecord{Code: &code, Payload: json.RawMessage(f.payload)}
	return &reservation.Found{Record: rec, Reservation: reservation.Normalize(rec.Payload, "", code)}, nil
}

type fakeConfig struct {
	agentURL    string
	gotProperty string
}

func (f *fakeConfig) Resolve(ctx context.Context, code, propertyID string) property.Config {
	f.gotProperty = propertyID
	cfg := property.Defaults()
	if f.agentURL != "" {
		cfg.AgentURL = &f.agentURL
	}
	return cfg
}

type fakeDispatcher struct {
	reply   Reply
	err     error
	calls   int
	gotURL  string
	gotCmd  Command
	waitCtx bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, agentURL string, cmd Command) (Reply, error) {
	f.calls++
	f.gotURL, f.gotCmd = agentURL, cmd
	if f.waitCtx {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}
	return f.reply, f.err
}

type recordingPublisher struct {
	attempts []Attempt
}

func (p *recordingPublisher) BroadcastUnlockCompleted(a Attempt) {
	p.attempts = append(p.attempts, a)
}

func stayPayload(in, out time.Time) string {
	return `{"data":{"propertyId":"p1","checkInISO":"` + in.Format(time.RFC3339) +
		`","checkOutISO":"` + out.Format(time.RFC3339) + `"}}`
}

func activePayload() string {
	return stayPayload(fixedNow.Add(-time.Hour), fixedNow.Add(48*time.Hour))
}

type harness struct {
	auth      *Authorizer
	config    *fakeConfig
	agent     *fakeDispatcher
	sink      *observe.Slot[Attempt]
	publisher *recordingPublisher
}

func newHarness(payload, agentURL string) *harness {
	h := &harness{
		config:    &fakeConfig{agentURL: agentURL},
		agent:     &fakeDispatcher{reply: Reply{StatusCode: 200, Body: map[string]any{}}},
		sink:      observe.NewSlot[Attempt](),
		publisher: &recordingPublisher{},
	}
	h.auth = NewAuthorizer(Deps{
		Reservations: fakeReservations{payload: payload},
		Config:       h.config,
		Dispatcher:   h.agent,
		Sink:         h.sink,
		Publisher:    h.publisher,
		Now:          func() time.Time { return fixedNow },
		Timeout:      50 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	return h
}

func TestAuthorize_StubWhenNoAgent(t *testing.T) {
	h := newHarness(activePayload(), "")

	res, err := h.auth.Authorize(context.Background(), Command{Code: "5039895833", StepID: "building", Action: "building"})
	require.NoError(t, err)
	assert.Equal(t, &Result{Code: "5039895833", StepID: "building", Action: "building", Result: ResultStubOK}, res)
	assert.Equal(t, 0, h.agent.calls)
	assert.Equal(t, "p1", h.config.gotProperty)

	last, ok := h.sink.Last()
	require.True(t, ok)
	assert.Equal(t, ResultStubOK, last.Result)
	assert.Equal(t, access.PhaseActive, last.Phase)
	assert.Nil(t, last.AgentURL)
	require.Len(t, h.publisher.attempts, 1)
}

func TestAuthorize_ActionDefaultsToStep(t *testing.T) {
	h := newHarness(activePayload(), "")

	res, err := h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "apartment"})
	require.NoError(t, err)
	assert.Equal(t, "apartment", res.Action)
}

func TestAuthorize_InvalidRequest(t *testing.T) {
	h := newHarness(activePayload(), "")

	for _, cmd := range []Command{{StepID: "s"}, {Code: "c"}, {Code: "c", Action: "a"}} {
		_, err := h.auth.Authorize(context.Background(), cmd)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	_, ok := h.sink.Last()
	assert.False(t, ok)
}

func TestAuthorize_NotFound(t *testing.T) {
	h := newHarness("", "")
	h.auth.deps.Reservations = fakeReservations{err: reservation.ErrNotFound}

	_, err := h.auth.Authorize(context.Background(), Command{Code: "nope", StepID: "s"})
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestAuthorize_BlockedOutsideStay(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		phase   access.Phase
	}{
		{"before", stayPayload(fixedNow.Add(time.Hour), fixedNow.Add(48*time.Hour)), access.PhaseBefore},
		{"after", stayPayload(fixedNow.Add(-48*time.Hour), fixedNow.Add(-time.Second)), access.PhaseAfter},
		{"unparseable", `{"data":{"checkInISO":"soon","checkOutISO":""}}`, access.PhaseBefore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.payload, "http://agent")

			_, err := h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "building"})

			var notActive *AccessNotActiveError
			require.ErrorAs(t, err, &notActive)
			assert.Equal(t, tt.phase, notActive.Phase)
			assert.Equal(t, 0, h.agent.calls)

			last, ok := h.sink.Last()
			require.True(t, ok)
			assert.Equal(t, ResultBlocked, last.Result)
			assert.Equal(t, tt.phase, last.Phase)
		})
	}
}

func TestAuthorize_BoundariesAreActive(t *testing.T) {
	h := newHarness(stayPayload(fixedNow, fixedNow.Add(time.Hour)), "")
	_, err := h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "s"})
	assert.NoError(t, err)

	h = newHarness(stayPayload(fixedNow.Add(-time.Hour), fixedNow), "")
	_, err = h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "s"})
	assert.NoError(t, err)
}

func TestAuthorize_AgentOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		reply  Reply
		err    error
		result string
	}{
		{"ok", Reply{StatusCode: 200, Body: map[string]any{"ok": true}}, nil, ResultAgentOK},
		{"agent result", Reply{StatusCode: 200, Body: map[string]any{"result": "opened"}}, nil, "opened"},
		{"non json", Reply{StatusCode: 204, Body: map[string]any{}}, nil, ResultAgentOK},
		{"explicit failure", Reply{StatusCode: 200, Body: map[string]any{"ok": false, "result": "opened"}}, nil, ResultAgentError},
		{"server error", Reply{StatusCode: 500, Body: map[string]any{"result": "opened"}}, nil, ResultAgentError},
		{"unreachable", Reply{}, errors.New("connection refused"), ResultAgentUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(activePayload(), "http://agent.local")
			h.agent.reply, h.agent.err = tt.reply, tt.err

			res, err := h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "building", Action: "open"})
			require.NoError(t, err)
			assert.Equal(t, tt.result, res.Result)
			assert.Equal(t, "http://agent.local", h.agent.gotURL)
			assert.Equal(t, Command{Code: "c", StepID: "building", Action: "open"}, h.agent.gotCmd)

			last, _ := h.sink.Last()
			assert.Equal(t, tt.result, last.Result)
			require.NotNil(t, last.AgentURL)
			assert.Equal(t, "http://agent.local", *last.AgentURL)
			if tt.err != nil {
				assert.Equal(t, map[string]any{"error": "connection refused"}, last.AgentResponse)
			} else {
				assert.Equal(t, tt.reply.Body, last.AgentResponse)
			}
		})
	}
}

func TestAuthorize_AgentTimeoutIsUnreachable(t *testing.T) {
	h := newHarness(activePayload(), "http://slow")
	h.agent.waitCtx = true

	start := time.Now()
	res, err := h.auth.Authorize(context.Background(), Command{Code: "c", StepID: "s"})
	require.NoError(t, err)
	assert.Equal(t, ResultAgentUnreachable, res.Result)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassify_NonObjectBody(t *testing.T) {
	assert.Equal(t, ResultAgentOK, Classify(Reply{StatusCode: 200, Body: []any{"x"}}))
	assert.Equal(t, ResultAgentError, Classify(Reply{StatusCode: 404, Body: nil}))
}

func TestClassify_ScalarResults(t *testing.T) {
	tests := []struct {
		result any
		want   string
	}{
		{float64(1), "1"},
		{true, "true"},
		{"opened", "opened"},
		{float64(0), ResultAgentOK},
		{false, ResultAgentOK},
		{"", ResultAgentOK},
		{map[string]any{"door": "open"}, ResultAgentOK},
	}
	for _, tt := range tests {
		got := Classify(Reply{StatusCode: 200, Body: map[string]any{"result": tt.result}})
		assert.Equal(t, tt.want, got, "result %v", tt.result)
	}
}

func TestAccessNotActiveError_Message(t *testing.T) {
	err := &AccessNotActiveError{Phase: access.PhaseAfter}
	assert.Contains(t, err.Error(), "after")
}

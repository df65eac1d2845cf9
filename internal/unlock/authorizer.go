// Package unlock decides whether a guest may trigger a door action and
// forwards permitted actions to the property's access agent.
package unlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/access"
	"github.com/str-access/backend/internal/property"
	"github.com/str-access/backend/internal/reservation"
)

// DispatchTimeout bounds a single call to an access agent.
const DispatchTimeout = 6 * time.Second

// Result strings reported for an unlock attempt.
const (
	ResultStubOK           = "stub-ok"
	ResultAgentOK          = "agent-ok"
	ResultAgentError       = "agent-error"
	ResultAgentUnreachable = "agent-unreachable"
	ResultBlocked          = "blocked-not-active"
)

// ErrInvalidRequest is returned when code or stepId is missing.
var ErrInvalidRequest = errors.New("missing code or stepId")

// AccessNotActiveError is returned when the reservation is outside its stay window.
type AccessNotActiveError struct {
	Phase access.Phase
}

func (e *AccessNotActiveError) Error() string {
	return fmt.Sprintf("access not active (phase %s)", e.Phase)
}

// Command is a guest's unlock request.
type Command struct {
	Code   string `json:"code"`
	StepID string `json:"stepId"`
	Action string `json:"action"`
}

// Reply is what an access agent answered. Body is the decoded JSON response,
// or an empty object when the response was not JSON.
type Reply struct {
	StatusCode int
	Body       any
}

// Result is returned to the guest for an accepted unlock request.
type Result struct {
	Code   string `json:"code"`
	StepID string `json:"stepId"`
	Action string `json:"action"`
	Result string `json:"result"`
}

// Attempt is the diagnostic record of one unlock request.
type Attempt struct {
	At            time.Time    `json:"at"`
	Code          string       `json:"code"`
	StepID        string       `json:"stepId"`
	Action        string       `json:"action"`
	Result        string       `json:"result"`
	Phase         access.Phase `json:"phase"`
	AgentURL      *string      `json:"agentUrl"`
	AgentResponse any          `json:"agentResponse"`
}

// Reservations looks up the stored reservation for a code.
type Reservations interface {
	Lookup(ctx context.Context, code string) (*reservation.Found, error)
}

// ConfigResolver supplies the effective property configuration.
type ConfigResolver interface {
	Resolve(ctx context.Context, code, propertyID string) property.Config
}

// Dispatcher sends a command to an access agent. A returned error means the
// agent could not be reached or did not answer in time.
type Dispatcher interface {
	Dispatch(ctx context.Context, agentURL string, cmd Command) (Reply, error)
}

// Sink keeps the most recent attempt.
type Sink interface {
	Put(Attempt)
}

// Publisher announces completed attempts to live listeners.
type Publisher interface {
	BroadcastUnlockCompleted(Attempt)
}

// Deps are the collaborators of an Authorizer. Sink and Publisher are optional.
type Deps struct {
	Reservations Reservations
	Config       ConfigResolver
	Dispatcher   Dispatcher
	Sink         Sink
	Publisher    Publisher
	Now          func() time.Time
	Timeout      time.Duration
	Logger       zerolog.Logger
}

// Authorizer gates unlock requests on the reservation's access phase.
type Authorizer struct {
	deps Deps
}

// NewAuthorizer creates an authorizer, filling in the clock and timeout when unset.
func NewAuthorizer(deps Deps) *Authorizer {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DispatchTimeout
	}
	return &Authorizer{deps: deps}
}

// Authorize checks cmd against its reservation and, when the stay is active,
// forwards it to the property's agent. Agent failures are reported through
// Result.Result, never as an error. Errors are ErrInvalidRequest,
// reservation.ErrNotFound or *AccessNotActiveError.
func (a *Authorizer) Authorize(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Action == "" {
		cmd.Action = cmd.StepID
	}
	if cmd.Code == "" || cmd.StepID == "" {
		return nil, ErrInvalidRequest
	}

	found, err := a.deps.Reservations.Lookup(ctx, cmd.Code)
	if err != nil {
		return nil, err
	}
	res := found.Reservation

	now := a.deps.Now()
	phase := access.Evaluate(now, res.CheckInISO, res.CheckOutISO)

	if phase != access.PhaseActive {
		a.record(Attempt{
			At:     now.UTC(),
			Code:   cmd.Code,
			StepID: cmd.StepID,
			Action: cmd.Action,
			Result: ResultBlocked,
			Phase:  phase,
		})
		return nil, &AccessNotActiveError{Phase: phase}
	}

	cfg := property.Defaults()
	if a.deps.Config != nil {
		cfg = a.deps.Config.Resolve(ctx, cmd.Code, res.PropertyID)
	}

	attempt := Attempt{
		At:       now.UTC(),
		Code:     cmd.Code,
		StepID:   cmd.StepID,
		Action:   cmd.Action,
		Result:   ResultStubOK,
		Phase:    phase,
		AgentURL: cfg.AgentURL,
	}

	if cfg.AgentURL != nil && *cfg.AgentURL != "" {
		attempt.Result, attempt.AgentResponse = a.dispatch(ctx, *cfg.AgentURL, cmd)
	}

	a.record(attempt)

	return &Result{
		Code:   cmd.Code,
		StepID: cmd.StepID,
		Action: cmd.Action,
		Result: attempt.Result,
	}, nil
}

func (a *Authorizer) dispatch(ctx context.Context, agentURL string, cmd Command) (string, any) {
	ctx, cancel := context.WithTimeout(ctx, a.deps.Timeout)
	defer cancel()

	reply, err := a.deps.Dispatcher.Dispatch(ctx, agentURL, cmd)
	if err != nil {
		return ResultAgentUnreachable, map[string]any{"error": err.Error()}
	}
	return Classify(reply), reply.Body
}

// Classify maps an agent reply to a result string. Non-2xx statuses and an
// explicit "ok": false are agent errors; otherwise a truthy scalar "result"
// from the agent, rendered as text, wins over agent-ok.
func Classify(reply Reply) string {
	body, _ := reply.Body.(map[string]any)

	if reply.StatusCode < 200 || reply.StatusCode > 299 {
		return ResultAgentError
	}
	if ok, isBool := body["ok"].(bool); isBool && !ok {
		return ResultAgentError
	}
	if result := reservation.FirstString(body["result"]); result != "" {
		return result
	}
	return ResultAgentOK
}

func (a *Authorizer) record(attempt Attempt) {
	agent := "-"
	if attempt.AgentURL != nil {
		agent = *attempt.AgentURL
	}
	a.deps.Logger.Info().
		Str("code", attempt.Code).
		Str("stepId", attempt.StepID).
		Str("action", attempt.Action).
		Str("result", attempt.Result).
		Str("phase", string(attempt.Phase)).
		Str("agent", agent).
		Msg("unlock")

	if a.deps.Sink != nil {
		a.deps.Sink.Put(attempt)
	}
	if a.deps.Publisher != nil {
		a.deps.Publisher.BroadcastUnlockCompleted(attempt)
	}
}

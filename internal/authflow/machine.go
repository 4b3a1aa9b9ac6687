package authflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// State identifies a phase of the session establishment machine.
type State string

const (
	StateParsing    State = "parsing"
	StateExchanging State = "exchanging"
	StateWaiting    State = "waiting"

	// Terminal states. Confirmed is the only success; the three failure
	// states are user-visible, diagnosable, and retryable.
	StateConfirmed     State = "confirmed"
	StateTimedOut      State = "timed_out"
	StateDenied        State = "denied"
	StateConfigMissing State = "config_missing"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateTimedOut, StateDenied, StateConfigMissing:
		return true
	default:
		return false
	}
}

// DefaultWaitBudget bounds the passive wait for a session when no budget is
// configured. Operator-supplied budgets are clamped to [MinWaitBudget,
// MaxWaitBudget] at config load.
const (
	DefaultWaitBudget = 10 * time.Second
	MinWaitBudget     = 8 * time.Second
	MaxWaitBudget     = 12 * time.Second
)

// Result is the outcome of one machine run. CleanURL is the callback URL with
// all sign-in parameters stripped (redirect target preserved); it is computed
// exactly once per run, after parsing. SoftErr records a recoverable
// exchange/token-set failure that did not terminate the run.
type Result struct {
	State          State
	Session        *domainauth.ProviderSession
	RedirectTarget string
	CleanURL       string
	Err            error
	SoftErr        error
}

// Confirmed reports whether the run established a session.
func (r Result) Confirmed() bool { return r.State == StateConfirmed }

// Machine drives sign-in completion on the OAuth callback location. It is
// stateless across runs: every Run starts from parsing, so terminal failure
// states can be retried by calling Run again.
type Machine struct {
	// Identity is the identity provider client. Nil means the provider is not
	// configured and every run terminates in StateConfigMissing.
	Identity ports.IdentityClient

	// WaitBudget bounds the passive wait for a session. Zero selects
	// DefaultWaitBudget.
	WaitBudget time.Duration

	Logger *slog.Logger
}

func (m *Machine) logger() *slog.Logger {
	if m != nil && m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *Machine) budget() time.Duration {
	if m.WaitBudget <= 0 {
		return DefaultWaitBudget
	}
	return m.WaitBudget
}

// Run executes the machine from parsing through a terminal state.
func (m *Machine) Run(ctx context.Context, rawURL string) Result {
	outcome := ParseRedirect(rawURL)
	result := Result{
		RedirectTarget: outcome.RedirectTarget,
		// Tokens have been read; safe to compute the stripped URL now.
		CleanURL: CleanURL(rawURL),
	}

	if outcome.Denied() {
		result.State = StateDenied
		result.Err = apperrors.AccessDenied(outcome.DenialMessage())
		return result
	}

	if m.Identity == nil {
		result.State = StateConfigMissing
		result.Err = apperrors.ConfigMissing("identity provider is not configured")
		return result
	}

	switch {
	case outcome.HasCode():
		sess, err := m.Identity.ExchangeCode(ctx, rawURL)
		if err != nil {
			// Recoverable: the provider may still have set a session as a
			// side effect, so fall through to waiting.
			result.SoftErr = apperrors.Wrap(err, apperrors.ErrCodeNetwork, "exchange authorization code")
			m.logger().WarnContext(ctx, "code exchange failed, waiting for session", "error", err)
		} else if sess != nil {
			m.logger().DebugContext(ctx, "code exchange established session", "user_id", sess.User.ID)
		}
	case outcome.HasImplicitTokens():
		_, err := m.Identity.SetSession(ctx, ports.TokenPair{
			AccessToken:  outcome.AccessToken,
			RefreshToken: outcome.RefreshToken,
		})
		if err != nil {
			result.SoftErr = apperrors.Wrap(err, apperrors.ErrCodeNetwork, "set session from implicit tokens")
			m.logger().WarnContext(ctx, "set session failed, waiting for session", "error", err)
		}
	}

	return m.wait(ctx, result)
}

// wait polls for a session once, then races the auth-state-change stream
// against the wait budget. The subscription is released exactly once on every
// exit path.
func (m *Machine) wait(ctx context.Context, result Result) Result {
	sess, err := m.Identity.GetSession(ctx)
	if err != nil {
		m.logger().DebugContext(ctx, "session probe failed, subscribing", "error", err)
	}
	if sess != nil {
		result.State = StateConfirmed
		result.Session = sess
		return result
	}

	events, release := m.Identity.AuthStateChanges()
	var once sync.Once
	releaseOnce := func() { once.Do(release) }
	defer releaseOnce()

	timer := time.NewTimer(m.budget())
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Stream ended without a session; only the timeout can end
				// the run now.
				events = nil
				continue
			}
			if ev.Session != nil {
				releaseOnce()
				result.State = StateConfirmed
				result.Session = ev.Session
				return result
			}
		case <-timer.C:
			releaseOnce()
			result.State = StateTimedOut
			result.Err = apperrors.Timeout("no session arrived within the sign-in wait budget")
			return result
		case <-ctx.Done():
			releaseOnce()
			result.State = StateTimedOut
			result.Err = apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "sign-in wait canceled")
			return result
		}
	}
}

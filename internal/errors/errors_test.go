package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := AccessDenied("blocked by policy")
	assert.Equal(t, "blocked by policy", e.Error())

	wrapped := Wrap(errors.New("boom"), ErrCodeNetwork, "request failed")
	assert.Equal(t, "request failed: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := Wrap(cause, ErrCodeInternal, "wrapper")
	assert.ErrorIs(t, e, cause)
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsConfigMissing(ConfigMissing("no backend configured")))
	assert.True(t, IsAccessDenied(AccessDenied("rls")))
	assert.True(t, IsTimeout(Timeout("budget elapsed")))
	assert.True(t, IsNetwork(Network("get teams", errors.New("dial"))))
	assert.True(t, IsValidation(ValidationField("week_start", "bad date")))
	assert.False(t, IsAccessDenied(errors.New("plain")))
}

func TestCodePredicates_ThroughWrapping(t *testing.T) {
	inner := AccessDenied("rls denial")
	outer := fmt.Errorf("lookup profile: %w", inner)
	assert.True(t, IsAccessDenied(outer))
	assert.Equal(t, ErrCodeAccessDenied, GetCode(outer))
}

func TestIsUnavailableSource(t *testing.T) {
	assert.True(t, IsUnavailableSource(AccessDenied("rls")))
	assert.True(t, IsUnavailableSource(Network("proxy", errors.New("refused"))))
	assert.True(t, IsUnavailableSource(Timeout("slow")))
	assert.True(t, IsUnavailableSource(NotFound("no profile")))
	assert.False(t, IsUnavailableSource(Validation("bad input")))
	assert.False(t, IsUnavailableSource(Internal("bug")))
}

func TestGetField(t *testing.T) {
	require.Equal(t, "email", GetField(ValidationField("email", "required")))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

package nuki

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		want ActionCode
	}{
		{"unlock", ActionUnlock},
		{"lock", ActionLock},
		{"unlatch", ActionUnlatch},
		{"lock-and-go", ActionLockAndGo},
		{"lockngo", ActionLockAndGo},
		{"  UNLATCH ", ActionUnlatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Unlatch_WireCode(t *testing.T) {
	code, err := ParseCommand("unlatch")
	require.NoError(t, err)
	assert.Equal(t, 3, int(code))
}

func TestParseCommand_Unknown(t *testing.T) {
	for _, name := range []string{"", "open", "lock-and-go-then-unlatch", "5", "unlock!"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			_, err := ParseCommand(name)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownCommand)
			assert.Equal(t, KindUnknownCommand, KindOf(err))
		})
	}
}

func TestActionCode(t *testing.T) {
	assert.Equal(t, ActionCode(1), ActionUnlock)
	assert.Equal(t, ActionCode(2), ActionLock)
	assert.Equal(t, ActionCode(3), ActionUnlatch)
	assert.Equal(t, ActionCode(4), ActionLockAndGo)
	assert.Equal(t, ActionCode(5), ActionLockAndGoThenUnlatch)

	assert.True(t, ActionLockAndGoThenUnlatch.Valid())
	assert.False(t, ActionCode(0).Valid())
	assert.False(t, ActionCode(6).Valid())

	assert.Equal(t, "unlatch", ActionUnlatch.String())
	assert.Equal(t, "lock-and-go-then-unlatch", ActionLockAndGoThenUnlatch.String())
	assert.Equal(t, "9", ActionCode(9).String())

	// Value 5 is defined but not reachable by name.
	for _, cmd := range Commands {
		assert.NotEqual(t, ActionLockAndGoThenUnlatch, cmd.Action)
	}
	assert.Len(t, Commands, 4)
}

func TestBridgeError_Messages(t *testing.T) {
	tests := []struct {
		err      *BridgeError
		want     string
		sentinel error
	}{
		{&BridgeError{Kind: KindUnreachable, Endpoint: EndpointLockAction}, "bridge unreachable while calling lock-action", ErrUnreachable},
		{&BridgeError{Kind: KindTimeout, Endpoint: EndpointLockState}, "bridge timeout while calling lock-state", ErrTimeout},
		{&BridgeError{Kind: KindUpstreamHTTP, Endpoint: EndpointLockState, Status: 503}, "bridge returned HTTP 503 while calling lock-state", ErrUpstreamStatus},
		{&BridgeError{Kind: KindUnexpected, Endpoint: EndpointLockAction}, "unexpected bridge failure while calling lock-action", ErrUnexpected},
		{&BridgeError{Kind: KindUnknownCommand}, "unknown command", ErrUnknownCommand},
		{&BridgeError{Kind: KindUnknownCommand, Command: "open"}, `unknown command "open"`, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("wrapped: %w", &BridgeError{Kind: KindTimeout})))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("other")))
}

func TestIdentity_Redaction(t *testing.T) {
	id := NewIdentity("192.168.1.50", 8080, "4711", 2, testToken)

	assert.True(t, id.HasToken())
	assert.Equal(t, "192.168.1.50:8080", id.Addr())
	for _, s := range []string{
		id.String(),
		fmt.Sprintf("%v", id),
		fmt.Sprintf("%+v", id),
		fmt.Sprintf("%#v", id),
		id.LogValue().String(),
	} {
		assert.NotContains(t, s, testToken)
	}
	assert.Contains(t, id.String(), "4711")
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTypedErrorMessage(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  *TypedError
		want string
	}{
		{"with cause", NewTypedError(TransportError, ConnectionFailedMsg, cause), "connection failed: dial tcp: connection refused"},
		{"without cause", NewTypedError(SessionClosedError, SessionClosedMsg, nil), "session closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewTypedError(EscalatedError, RecoveryEscalatedMsg, cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is failed to reach the cause")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	var typed *TypedError
	if !stderrors.As(wrapped, &typed) {
		t.Fatal("errors.As failed to find TypedError")
	}
	if typed.Type != EscalatedError {
		t.Errorf("got type %v, want EscalatedError", typed.Type)
	}
}

func TestClassificationPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transport bool
		closed    bool
		decode    bool
		missing   bool
	}{
		{"nil", nil, false, false, false, false},
		{"typed transport", NewTypedError(TransportError, ConnectionResetMsg, nil), true, false, false, false},
		{"typed timeout", NewTypedError(TimeoutError, TimeoutMsg, nil), true, false, false, false},
		{"typed session closed", NewTypedError(SessionClosedError, SessionClosedMsg, nil), false, true, false, false},
		{"typed decode", NewTypedError(DecodeError, CorruptStreamMsg, nil), false, false, true, false},
		{"typed missing route", NewTypedError(MissingRouteError, MissingRouteMsg, nil), false, false, false, true},
		{"net refused string", stderrors.New("dial tcp 127.0.0.1:9092: connect: connection refused"), true, false, false, false},
		{"net broken pipe string", stderrors.New("write tcp: broken pipe"), true, false, false, false},
		{"plain error", stderrors.New("something else"), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.transport {
				t.Errorf("IsTransportError: got %v, want %v", got, tt.transport)
			}
			if got := IsSessionClosed(tt.err); got != tt.closed {
				t.Errorf("IsSessionClosed: got %v, want %v", got, tt.closed)
			}
			if got := IsDecodeError(tt.err); got != tt.decode {
				t.Errorf("IsDecodeError: got %v, want %v", got, tt.decode)
			}
			if got := IsMissingRoute(tt.err); got != tt.missing {
				t.Errorf("IsMissingRoute: got %v, want %v", got, tt.missing)
			}
		})
	}
}

func TestRecoveryPolicies(t *testing.T) {
	transport := NewTypedError(TransportError, ConnectionResetMsg, nil)
	closed := NewTypedError(SessionClosedError, SessionClosedMsg, nil)
	missing := NewTypedError(MissingRouteError, MissingRouteMsg, nil)
	proto := NewTypedError(ProtocolError, "bad body", nil)

	if !ShouldRecreateConnection(transport) || !ShouldRecreateConnection(closed) {
		t.Error("transport and session-closed errors must recreate the connection")
	}
	if ShouldRecreateConnection(proto) {
		t.Error("protocol errors must not recreate the connection")
	}
	if !ShouldRefreshMetadata(missing) || !ShouldRefreshMetadata(transport) {
		t.Error("missing-route and transport errors must refresh metadata")
	}
	if ShouldRefreshMetadata(proto) {
		t.Error("protocol errors must not refresh metadata")
	}
}

func TestGetErrorType(t *testing.T) {
	if got := GetErrorType(NewTypedError(UnreachableError, BootstrapExhaustedMsg, nil)); got != UnreachableError {
		t.Errorf("got %v, want UnreachableError", got)
	}
	if got := GetErrorType(stderrors.New("plain")); got != GeneralError {
		t.Errorf("got %v, want GeneralError", got)
	}
}

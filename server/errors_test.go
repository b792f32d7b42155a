package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentError_Codes(t *testing.T) {
	tests := []struct {
		err  *AgentError
		code AgentErrorCode
	}{
		{NewParseError("x"), ErrParseError},
		{NewInvalidRequestError("x"), ErrInvalidRequest},
		{NewMethodNotFoundError("x"), ErrMethodNotFound},
		{NewInvalidParamsError("x"), ErrInvalidParams},
		{NewInternalError(errors.New("x")), ErrInternalError},
		{NewTaskNotFoundError("x"), ErrTaskNotFound},
		{NewTaskNotCancelableError("x"), ErrTaskNotCancelable},
		{NewPushNotificationNotSupportedError(), ErrPushNotificationNotSupported},
		{NewUnsupportedOperationError("x"), ErrUnsupportedOperation},
		{NewContentTypeNotSupportedError("x"), ErrContentTypeNotSupported},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
	}
}

func TestAgentError_ErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError(cause)

	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAgentError_WithRequestIDCopies(t *testing.T) {
	base := NewTaskNotFoundError("t1")
	withID := base.WithRequestID("req-1")

	assert.Equal(t, "req-1", withID.RequestID)
	assert.Nil(t, base.RequestID, "the original error must stay untouched")
	assert.Equal(t, base.Code, withID.Code)
}

func TestAsAgentError(t *testing.T) {
	assert.Nil(t, AsAgentError(nil))

	agentErr := NewInvalidParamsError("bad")
	assert.Same(t, agentErr, AsAgentError(agentErr), "an AgentError passes through unchanged")

	wrapped := AsAgentError(fmt.Errorf("something broke"))
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrInternalError, wrapped.Code)
}

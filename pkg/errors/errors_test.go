package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Fetch("r123", "page did not load", stderrors.New("timeout"))
	assert.Equal(t, "fetch error [r123]: page did not load: timeout", err.Error())

	withCode := &Error{Type: ErrorTypeServerError, Code: 503, Message: "unavailable"}
	assert.Equal(t, "server_error error (code 503): unavailable", withCode.Error())
}

func TestTypeOfWrapped(t *testing.T) {
	inner := Auth("login rejected", nil)
	wrapped := fmt.Errorf("run: %w", inner)

	assert.Equal(t, ErrorTypeAuth, TypeOf(wrapped))
	assert.True(t, IsAuth(wrapped))
	assert.False(t, IsConfig(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.False(t, IsAuth(nil))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrorTypeUnknown, cause, "write artifact")
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected bool
	}{
		{ErrorTypeFetch, true},
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeParsing, true},
		{ErrorTypeAuth, false},
		{ErrorTypeConfig, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeStateCorruption, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.errType))
		})
	}
}

func TestStatusCodes(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(502))
	assert.True(t, IsRetryableStatusCode(599))
	assert.False(t, IsRetryableStatusCode(401))
	assert.False(t, IsRetryableStatusCode(404))

	assert.Equal(t, ErrorTypeAuth, TypeForStatusCode(403))
	assert.Equal(t, ErrorTypeRateLimit, TypeForStatusCode(429))
	assert.Equal(t, ErrorTypeServerError, TypeForStatusCode(500))
	assert.Equal(t, ErrorTypeNotFound, TypeForStatusCode(404))
	assert.Equal(t, ErrorTypeNetwork, TypeForStatusCode(0))
}

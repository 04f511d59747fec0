package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_ErrorAndUnwrap(t *testing.T) {
	base := errors.New("connection reset")
	err := &ProviderError{Code: ErrorCodeNetwork, Message: "network error", Underlying: base}

	assert.Equal(t, "network_error: network error (connection reset)", err.Error())
	assert.ErrorIs(t, err, base)

	bare := &ProviderError{Code: ErrorCodeAuth, Message: "authentication failed"}
	assert.Equal(t, "authentication_failed: authentication failed", bare.Error())
}

func TestIsRetryable(t *testing.T) {
	retryAfter := 3 * time.Second
	wrapped := fmt.Errorf("selection 1/2: %w", &ProviderError{Code: ErrorCodeRateLimit, Retryable: true, RetryAfter: &retryAfter})

	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, &retryAfter, GetRetryAfter(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Nil(t, GetRetryAfter(errors.New("plain")))
}

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrorCodeAuth, false},
		{403, ErrorCodeAuth, false},
		{404, ErrorCodeInvalidModel, false},
		{408, ErrorCodeTimeout, true},
		{429, ErrorCodeRateLimit, true},
		{400, ErrorCodeInvalidRequest, false},
		{413, ErrorCodeInvalidRequest, false},
		{500, ErrorCodeUnavailable, true},
		{503, ErrorCodeUnavailable, true},
		{418, ErrorCodeNetwork, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			underlying := errors.New("boom")
			err := ErrorFromStatus(tt.status, "details", underlying)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.ErrorIs(t, err, underlying)
		})
	}
}

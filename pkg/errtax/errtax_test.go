package errtax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_StatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   Kind
	}{
		{"rate limit", 429, RateLimit},
		{"unauthorized", 401, ClientError},
		{"forbidden", 403, ClientError},
		{"bad request", 400, ClientError},
		{"server error", 500, ServerError},
		{"bad gateway", 502, ServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify(tc.status, "", nil, nil)
			require.NotNil(t, err)
			require.Equal(t, tc.want, err.Kind)
		})
	}
}

func TestClassify_Cancelled(t *testing.T) {
	err := Classify(0, "", nil, context.Canceled)
	require.NotNil(t, err)
	require.Equal(t, Cancelled, err.Kind)
}

func TestClassify_NetworkError(t *testing.T) {
	err := Classify(0, "", errors.New("dial tcp: connection refused"), nil)
	require.NotNil(t, err)
	require.Equal(t, NetworkError, err.Kind)
}

func TestError_Retryable(t *testing.T) {
	require.True(t, New(RateLimit, 429, nil).Retryable())
	require.True(t, New(ServerError, 500, nil).Retryable())
	require.False(t, New(ClientError, 400, nil).Retryable())
	require.False(t, New(Cancelled, 0, nil).Retryable())
}

package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_NotificationHasNoID(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	require.NoError(t, err)
	require.True(t, req.IsNotification())
}

func TestDecodeRequest_RequestWithIDIsNotANotification(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":7,"method":"ping"}`))
	require.NoError(t, err)
	require.False(t, req.IsNotification())
}

func TestDecodeRequest_NullIDIsTreatedAsNotification(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`))
	require.NoError(t, err)
	require.True(t, req.IsNotification())
}

func TestNewErrorResponse_NilIDEncodesNull(t *testing.T) {
	resp := NewErrorResponse(nil, CodeParseError, "parse error", nil)
	raw, err := Encode(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "null", string(decoded["id"]))
}

func TestNewResultResponse_PreservesRequestID(t *testing.T) {
	id := json.RawMessage("42")
	resp := NewResultResponse(id, map[string]string{"ok": "true"})
	raw, err := Encode(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "42", string(decoded["id"]))
	require.NotContains(t, decoded, "error")
}

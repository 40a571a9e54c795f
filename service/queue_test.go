package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The payload field names are the wire format consumers key on, they
// can't drift
func TestPayloadWireFormat(t *testing.T) {
	b, err := json.Marshal(ThumbnailPayload{UserID: "u1", FileID: "f1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","fileId":"f1"}`, string(b))

	b, err = json.Marshal(WelcomePayload{UserID: "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1"}`, string(b))
}

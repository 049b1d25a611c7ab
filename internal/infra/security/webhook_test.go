package security

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhookVerifier(t *testing.T, now time.Time) *WebhookVerifier {
	t.Helper()
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("webhook-test-key"))
	v, err := NewWebhookVerifier(secret, 5*time.Minute)
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func TestWebhookVerifier_Verify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestWebhookVerifier(t, now)
	body := []byte(`{"type":"user.created"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	good, err := v.Sign("msg_1", now, body)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id, ts  string
		sigs    string
		body    []byte
		wantErr error
	}{
		{name: "valid", id: "msg_1", ts: ts, sigs: good, body: body},
		{name: "one of several", id: "msg_1", ts: ts, sigs: "v1,bm9wZQ== " + good, body: body},
		{name: "tampered body", id: "msg_1", ts: ts, sigs: good, body: []byte(`{}`), wantErr: ErrWebhookSignature},
		{name: "other id", id: "msg_2", ts: ts, sigs: good, body: body, wantErr: ErrWebhookSignature},
		{name: "wrong version", id: "msg_1", ts: ts, sigs: "v2," + good[3:], body: body, wantErr: ErrWebhookSignature},
		{name: "missing headers", id: "", ts: ts, sigs: good, body: body, wantErr: ErrWebhookHeaders},
		{name: "bad timestamp", id: "msg_1", ts: "yesterday", sigs: good, body: body, wantErr: ErrWebhookTimestamp},
		{
			name: "stale", id: "msg_1", ts: strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10),
			sigs: good, body: body, wantErr: ErrWebhookTimestamp,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.id, tt.ts, tt.sigs, tt.body)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWebhookVerifier_SignatureFormat(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestWebhookVerifier(t, now)

	sig, err := v.Sign("msg_1", now, []byte("{}"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, "v1,"), sig)

	// the same key without the prefix verifies the same delivery
	bare, err := NewWebhookVerifier(base64.StdEncoding.EncodeToString([]byte("webhook-test-key")), 5*time.Minute)
	require.NoError(t, err)
	bare.now = v.now
	assert.NoError(t, bare.Verify("msg_1", strconv.FormatInt(now.Unix(), 10), sig, []byte("{}")))
}

func TestNewWebhookVerifier_RejectsBadSecret(t *testing.T) {
	_, err := NewWebhookVerifier("whsec_***", time.Minute)
	assert.Error(t, err)
	_, err = NewWebhookVerifier("whsec_", time.Minute)
	assert.Error(t, err)
}

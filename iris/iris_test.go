package iris

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gousdcbridge/types"
)

const testHash = "0x9b163e8f4ec912e22e19d6e9e2ed32b0b3071c38f48a4f4d40ac4f2a1b0a6a01"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(zap.NewNop(), "https://iris-api-sandbox.circle.com", "test-key")
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestPollNotAttestedYet(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(404, `{"error":"Message hash not found"}`))

	rec, err := c.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationPending, rec.Status)
	assert.Empty(t, rec.Attestation)
}

func TestPollComplete(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(200, `{"status":"complete","attestation":"0xdeadbeef"}`))

	rec, err := c.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationComplete, rec.Status)
	assert.Equal(t, "0xdeadbeef", rec.Attestation)
	assert.Equal(t, testHash, rec.MessageHash)
}

// the service reports 200 with a literal PENDING attestation while
// signatures are still being collected
func TestPollLiteralPending(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(200, `{"status":"pending_confirmations","attestation":"PENDING"}`))

	rec, err := c.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationPending, rec.Status)
}

func TestPollDataEnvelope(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(200, `{"data":{"status":"complete","attestation":"0xfeedface"}}`))

	rec, err := c.Poll(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, types.AttestationComplete, rec.Status)
	assert.Equal(t, "0xfeedface", rec.Attestation)
}

// 5xx must come back as a retryable plain error, not the definitive
// service error
func TestPollServerError(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(503, `{"error":"unavailable"}`))

	_, err := c.Poll(context.Background(), testHash)
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrAttestationService)
}

func TestPollDefinitiveRejection(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://iris-api-sandbox.circle.com/v1/attestations/"+testHash,
		httpmock.NewStringResponder(400, `{"error":"malformed message hash"}`))

	_, err := c.Poll(context.Background(), testHash)
	assert.ErrorIs(t, err, types.ErrAttestationService)
}

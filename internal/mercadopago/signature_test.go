package mercadopago

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifest(t *testing.T) {
	assert.Equal(t, "id:abc123;request-id:req-1;ts:1704908010;", Manifest("ABC123", "req-1", "1704908010"))
	assert.Equal(t, "id:999;ts:1704908010;", Manifest("999", "", "1704908010"))
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	header := SignatureHeader("s3cret", "999", "req-1", "1704908010")

	assert.NoError(t, VerifySignature("s3cret", header, "999", "req-1"))
	assert.NoError(t, VerifySignature("s3cret", " ts = 1704908010 , "+header[len("ts=1704908010,"):], "999", "req-1"))
}

func TestVerifySignature_Rejects(t *testing.T) {
	header := SignatureHeader("s3cret", "999", "req-1", "1704908010")

	tests := map[string]struct {
		secret, header, dataID, requestID string
	}{
		"wrong secret":     {"other", header, "999", "req-1"},
		"other payment id": {"s3cret", header, "1000", "req-1"},
		"other request id": {"s3cret", header, "999", "req-2"},
		"missing v1":       {"s3cret", "ts=1704908010", "999", "req-1"},
		"missing ts":       {"s3cret", "v1=abcd", "999", "req-1"},
		"non hex":          {"s3cret", "ts=1,v1=zz", "999", "req-1"},
		"empty":            {"s3cret", "", "999", "req-1"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, VerifySignature(tt.secret, tt.header, tt.dataID, tt.requestID), ErrInvalidSignature)
		})
	}
}

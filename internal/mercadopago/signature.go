package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Manifest is the text Mercado Pago signs for a notification:
//
//	id:{data.id};request-id:{x-request-id};ts:{ts};
//
// Parts whose value is unknown are left out. Alphanumeric ids are lowercased.
func Manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	if ts != "" {
		fmt.Fprintf(&b, "ts:%s;", ts)
	}
	return b.String()
}

// ComputeSignature returns the hex HMAC-SHA256 of the manifest.
func ComputeSignature(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds an x-signature value, "ts={ts},v1={hash}".
func SignatureHeader(secret, dataID, requestID, ts string) string {
	return fmt.Sprintf("ts=%s,v1=%s", ts, ComputeSignature(secret, dataID, requestID, ts))
}

// VerifySignature checks an x-signature header against the notification's
// data id and x-request-id header.
func VerifySignature(secret, header, dataID, requestID string) error {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return fmt.Errorf("%w: missing ts or v1", ErrInvalidSignature)
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("%w: v1 is not hex", ErrInvalidSignature)
	}
	want, _ := hex.DecodeString(ComputeSignature(secret, dataID, requestID, ts))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

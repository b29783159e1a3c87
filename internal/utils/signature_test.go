package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignPayload(t *testing.T) {
	body := []byte(`{"event":"catalog.alert"}`)
	ts := time.Unix(1_700_000_000, 0)
	sig := SignPayload("secret", ts, body)

	assert.Len(t, sig, len("sha256=")+64)
	assert.NoError(t, VerifyPayload("secret", sig, ts, body, time.Minute, ts.Add(time.Second)))
	assert.ErrorIs(t, VerifyPayload("other", sig, ts, body, 0, ts), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifyPayload("secret", sig, ts, []byte(`{}`), 0, ts), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifyPayload("secret", sig, ts.Add(time.Second), body, 0, ts), ErrSignatureMismatch, "timestamp is signed")
	assert.ErrorIs(t, VerifyPayload("secret", sig, ts, body, time.Minute, ts.Add(time.Hour)), ErrSignatureExpired)
	assert.ErrorIs(t, VerifyPayload("secret", "sha256=zz", ts, body, 0, ts), ErrSignatureMismatch)
}

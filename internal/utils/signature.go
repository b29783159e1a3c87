package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-Catalog-Signature"
	TimestampHeader = "X-Catalog-Timestamp"
	signaturePrefix = "sha256="
)

var (
	ErrSignatureMismatch = errors.New("SIGNATURE_MISMATCH")
	ErrSignatureExpired  = errors.New("SIGNATURE_EXPIRED")
)

// SignPayload signs "<unix seconds>.<body>" with HMAC-SHA256 and returns the
// header value "sha256=<hex>". Binding the timestamp lets receivers reject replays.
func SignPayload(secret string, ts time.Time, body []byte) string {
	return signaturePrefix + hex.EncodeToString(mac(secret, ts.Unix(), body))
}

// VerifyPayload checks a SignPayload value. Signatures older than maxAge are
// rejected; maxAge <= 0 disables the age check.
func VerifyPayload(secret, signature string, ts time.Time, body []byte, maxAge time.Duration, now time.Time) error {
	if maxAge > 0 && now.Sub(ts) > maxAge {
		return ErrSignatureExpired
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil || !hmac.Equal(got, mac(secret, ts.Unix(), body)) {
		return ErrSignatureMismatch
	}
	return nil
}

func mac(secret string, unix int64, body []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(unix, 10)))
	h.Write([]byte{'.'})
	h.Write(body)
	return h.Sum(nil)
}

package openpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const signatureVersion = "1"

// signPayload computes HMAC-SHA256(secret, "<unix-ms>.<body>").
func signPayload(secret []byte, timestampMS int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.%s", timestampMS, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader renders the request signature header:
// "t=<unix-ms-timestamp>, v1=<hex-digest>".
func SignatureHeader(secret, body []byte, now time.Time) string {
	ts := now.UnixMilli()
	return fmt.Sprintf("t=%d, v%s=%s", ts, signatureVersion, signPayload(secret, ts, body))
}

// VerifySignature checks a signature header against a payload using a
// constant-time digest comparison.
func VerifySignature(secret []byte, header string, body []byte) bool {
	var ts int64 = -1
	var digest string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return false
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return false
			}
			ts = n
		case "v" + signatureVersion:
			digest = v
		}
	}
	if ts < 0 || digest == "" {
		return false
	}
	expected := signPayload(secret, ts, body)
	return hmac.Equal([]byte(expected), []byte(digest))
}

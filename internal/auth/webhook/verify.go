package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	// DefaultTolerance is how far a delivery timestamp may drift from now.
	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders    = errors.New("missing webhook signature headers")
	ErrInvalidTimestamp  = errors.New("invalid webhook timestamp")
	ErrTimestampTooOld   = errors.New("webhook timestamp outside tolerance")
	ErrNoMatchingSig     = errors.New("no matching webhook signature")
	ErrInvalidSecretForm = errors.New("invalid webhook signing secret")
)

// Verifier checks signed deliveries: HMAC-SHA256 over "id.timestamp.body"
// with a base64 secret, compared against every "v1,<sig>" entry.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string) (*Verifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix))
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecretForm
	}
	return &Verifier{key: key, tolerance: DefaultTolerance, now: time.Now}, nil
}

// Verify validates the delivery headers against body.
func (v *Verifier) Verify(body []byte, h http.Header) error {
	id := h.Get(HeaderID)
	ts := h.Get(HeaderTimestamp)
	sigs := h.Get(HeaderSignature)
	if id == "" || ts == "" || sigs == "" {
		return ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	sent := time.Unix(sec, 0)
	now := v.now()
	if now.Sub(sent) > v.tolerance || sent.Sub(now) > v.tolerance {
		return ErrTimestampTooOld
	}

	expected := v.sign(id, sec, body)
	for _, entry := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != signatureVersion {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrNoMatchingSig
}

// Sign returns the header value a sender would attach for this delivery.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) string {
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(v.sign(id, ts.Unix(), body))
}

func (v *Verifier) sign(id string, ts int64, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%d.", id, ts)
	mac.Write(body)
	return mac.Sum(nil)
}

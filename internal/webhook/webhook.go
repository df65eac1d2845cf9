// Package webhook verifies and interprets booking-platform webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/str-access/backend/internal/reservation"
)

// SignatureHeaders are checked in order; the first non-empty one is used.
var SignatureHeaders = []string{
	"X-Webhook-Signature",
	"X-Signature",
	"X-Hospitable-Signature",
}

// Verifier checks HMAC-SHA256 signatures against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier. An empty secret disables verification.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Sign returns the lowercase hex signature of body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the request signature matches body. It always
// succeeds when verification is disabled and fails when no signature header
// is present.
func (v *Verifier) Verify(header http.Header, body []byte) bool {
	if !v.Enabled() {
		return true
	}

	sig := Signature(header)
	if sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(v.Sign(body))) == 1
}

// Signature returns the first non-empty signature header value.
func Signature(header http.Header) string {
	for _, name := range SignatureHeaders {
		if sig := header.Get(name); sig != "" {
			return sig
		}
	}
	return ""
}

// Identity is the id and code under which a delivery is stored. Either may be nil.
type Identity struct {
	ID   *string
	Code *string
}

// IdentityOf extracts the record identity from a decoded webhook body.
// The id prefers data.id over data.reservationId and finally the body's own
// id; the code prefers data.code over data.platform_id.
func IdentityOf(body any) Identity {
	data := reservation.DataOf(body)
	root, _ := body.(map[string]any)

	return Identity{
		ID:   optional(reservation.FirstString(data["id"], data["reservationId"], root["id"])),
		Code: optional(reservation.FirstString(data["code"], data["platform_id"])),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package wotevent

import (
	"encoding/json"
	"math"
)

// requestDocument is the nested document embedded in a payment receipt's
// "description" tag, whose own tags carry the millisat amount.
type requestDocument struct {
	Tags []Tag `json:"tags"`
}

// ParseZapAmountSats extracts the attestation id referenced by a payment
// receipt event and its amount in whole satoshis (floor of millisats/1000).
// ok is false when the event carries no "e" tag, no "description" tag, the
// description does not parse as JSON, or it carries no non-negative integer
// "amount" tag.
func ParseZapAmountSats(ev Event) (attestationID string, sats int64, ok bool) {
	attestationID = firstTagValue(ev.Tags, "e", 1)
	if attestationID == "" {
		return "", 0, false
	}
	desc := firstTagValue(ev.Tags, "description", 1)
	if desc == "" {
		return "", 0, false
	}
	var doc requestDocument
	if err := json.Unmarshal([]byte(desc), &doc); err != nil {
		return "", 0, false
	}
	amountRaw := firstTagValue(doc.Tags, "amount", 1)
	if amountRaw == "" {
		return "", 0, false
	}
	millisats, ok := parseNonNegativeInt63(amountRaw)
	if !ok {
		return "", 0, false
	}
	return attestationID, millisats / 1000, true
}

// parseNonNegativeInt63 parses s as a base-10, non-negative 63-bit integer
// rather than trusting ad-hoc JSON-number handling.
func parseNonNegativeInt63(s string) (int64, bool) {
	var n int64
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

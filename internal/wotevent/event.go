// Package wotevent defines the wire-level event record and the typed
// records parsed from it (Attestation, Revocation, ServiceResult), plus the
// payment-receipt amount parser ParseZapAmountSats. Parsing is deliberately lenient about tag ordering and
// optional fields, and strict (reject, don't guess) everywhere else.
package wotevent

// Tag is one ordered sequence of strings, e.g. ["l", "service-quality", "ai.wot"].
type Tag []string

// Event is the raw, already-signature-verified event record as delivered by
// the relay layer. Signature verification and event-id computation are the
// signing primitive's responsibility, kept external to this package; Event
// simply carries the fields scoring and parsing need.
type Event struct {
	ID        string
	Kind      int
	Author    string // hex key, not yet canonicalised
	CreatedAt int64  // unix seconds
	Content   string
	Tags      []Tag
	Sig       string
}

// Namespace is the byte-exact ai.wot protocol marker.
const Namespace = "ai.wot"

// KindAttestation is the event kind used for attestations.
const KindAttestation = 1985

// KindRevocation is the event kind used for revocations.
const KindRevocation = 5

// KindPaymentReceipt is the event kind used for zap/payment receipts.
const KindPaymentReceipt = 9735

// firstTagValue returns the first value at position idx among tags whose
// position 0 equals name, or "" if none match.
func firstTagValue(tags []Tag, name string, idx int) string {
	for _, t := range tags {
		if len(t) > idx && t[0] == name {
			return t[idx]
		}
	}
	return ""
}

// allTagValues returns every value at position idx among tags whose position
// 0 equals name, preserving order.
func allTagValues(tags []Tag, name string, idx int) []string {
	var out []string
	for _, t := range tags {
		if len(t) > idx && t[0] == name {
			out = append(out, t[idx])
		}
	}
	return out
}

// hasNamespaceMarker reports whether tags contains ["L", "ai.wot"].
func hasNamespaceMarker(tags []Tag) bool {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == "L" && t[1] == Namespace {
			return true
		}
	}
	return false
}

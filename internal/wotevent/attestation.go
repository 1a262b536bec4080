package wotevent

import (
	"strconv"
	"strings"

	"github.com/aiwot/reputation-engine/internal/wottype"
)

// Attestation is the immutable, signed record gossiped between relays. Type
// and target are not stored as separate fields: they are derived from Tags
// on demand by ParseType/Target, matching the kernel's "parse at the edge,
// reject unrecognised records into the breakdown" design.
type Attestation struct {
	ID        string
	Author    wottype.Key
	CreatedAt int64
	Content   string
	Tags      []Tag
	Sig       string
}

// ParseType extracts the attestation type. It tries the strict form
// ["l", TYPE, "ai.wot"] first; if absent, it falls back to the lenient form
// ["l", TYPE] but only when a separate ["L", "ai.wot"] namespace marker is
// present elsewhere in Tags.
func (a Attestation) ParseType() (wottype.AttestationType, bool) {
	for _, t := range a.Tags {
		if len(t) >= 3 && t[0] == "l" && t[2] == Namespace {
			if typ := wottype.AttestationType(t[1]); typ.Valid() {
				return typ, true
			}
		}
	}
	if hasNamespaceMarker(a.Tags) {
		for _, t := range a.Tags {
			if len(t) >= 2 && t[0] == "l" {
				if typ := wottype.AttestationType(t[1]); typ.Valid() {
					return typ, true
				}
			}
		}
	}
	return "", false
}

// Target extracts and canonicalises the target-key tag ["p", TARGET_KEY_HEX].
func (a Attestation) Target() (wottype.Key, bool) {
	raw := firstTagValue(a.Tags, "p", 1)
	if raw == "" {
		return "", false
	}
	k, err := wottype.ParseKey(raw)
	if err != nil {
		return "", false
	}
	return k, true
}

// EventRef extracts the optional ["e", REFERENCED_EVENT_ID, RELAY_HINT] tag.
func (a Attestation) EventRef() (id, relayHint string, ok bool) {
	for _, t := range a.Tags {
		if len(t) >= 2 && t[0] == "e" {
			id = t[1]
			if len(t) >= 3 {
				relayHint = t[2]
			}
			return id, relayHint, true
		}
	}
	return "", "", false
}

// Expiration extracts the advisory ["expiration", UNIX_SECS] tag.
func (a Attestation) Expiration() (int64, bool) {
	raw := firstTagValue(a.Tags, "expiration", 1)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsEmptyContent reports whether content is empty or whitespace-only, the
// gate applied to negative attestations.
func (a Attestation) IsEmptyContent() bool {
	return strings.TrimSpace(a.Content) == ""
}

// FromEvent builds an Attestation view over a raw Event. The event is
// expected to already be of kind KindAttestation; callers filter by kind
// before calling this (the relay aggregator does so via its subscription
// filter).
func FromEvent(ev Event) Attestation {
	return Attestation{
		ID:        ev.ID,
		Author:    wottype.Key(strings.ToLower(ev.Author)),
		CreatedAt: ev.CreatedAt,
		Content:   ev.Content,
		Tags:      ev.Tags,
		Sig:       ev.Sig,
	}
}

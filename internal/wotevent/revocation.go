package wotevent

import "strings"

// Revocation is a signed deletion record from an attestation's original
// author.
type Revocation struct {
	ID            string
	Author        string
	Content       string
	ReferencedIDs []string
	KindReference string
}

// ParseRevocation builds a Revocation from a kind-5 event. It returns ok=false
// when the event carries no ["k", "1985"] tag, no ["e", ...] tag, or empty
// content — any of which makes it protocol-parse-invalid.
func ParseRevocation(ev Event) (Revocation, bool) {
	kindRef := ""
	for _, v := range allTagValues(ev.Tags, "k", 1) {
		if v == "1985" {
			kindRef = v
			break
		}
	}
	if kindRef == "" {
		return Revocation{}, false
	}
	ids := allTagValues(ev.Tags, "e", 1)
	if len(ids) == 0 {
		return Revocation{}, false
	}
	if strings.TrimSpace(ev.Content) == "" {
		return Revocation{}, false
	}
	return Revocation{
		ID:            ev.ID,
		Author:        strings.ToLower(ev.Author),
		Content:       ev.Content,
		ReferencedIDs: ids,
		KindReference: kindRef,
	}, true
}

// Effective reports whether this revocation is trusted to remove att: only
// true when the revocation's author equals the attestation's author.
// Restricting the revocation query to authors present in the attestation
// bag (done by the aggregator) is what makes this check sufficient rather
// than also requiring a relay-side authorisation proof.
func (r Revocation) Effective(attestationAuthor string) bool {
	return strings.EqualFold(r.Author, attestationAuthor) && r.KindReference == "1985"
}

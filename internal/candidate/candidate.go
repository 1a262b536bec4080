// Package candidate implements the Candidate Store: a durable, ordered queue
// of proposed attestations awaiting human confirmation before they are
// published to the relay network.
package candidate

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"time"

	"github.com/aiwot/reputation-engine/internal/woterrors"
)

// Status is a Candidate's position in its state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
	StatusExpired   Status = "expired"
)

// terminal reports whether a status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusRejected || s == StatusPublished || s == StatusExpired
}

// Candidate is a proposed attestation body held for confirmation before
// publish.
type Candidate struct {
	ID        string
	Type      string
	Target    string
	Comment   string
	Source    string
	EventRef  string // optional pre-publication reference, e.g. the service-result event this candidate was built from
	Metadata  map[string]string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	EventID   string // set once published
	Reason    string // set once rejected
}

// newID generates a 16-hex-character candidate id.
func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing indicates a broken host entropy source;
		// fall back to a time-derived id rather than panic.
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}

// Filter narrows List's result set. Zero values mean "no constraint", except
// Limit, where zero (or a negative value) means the default of 50.
type Filter struct {
	Status Status
	Target string
	Source string
	Limit  int
}

func sortByCreatedAtDesc(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
}

func validateRequiredFields(typ, target, comment string) error {
	if typ == "" {
		return woterrors.MissingField("type")
	}
	if target == "" {
		return woterrors.MissingField("target")
	}
	if comment == "" {
		return woterrors.MissingField("comment")
	}
	return nil
}

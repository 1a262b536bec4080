// Package scoring implements the pure, side-effect-free Scoring Kernel:
// temporal decay, zap weighting, recursive attester-trust dampening,
// negative-attestation gating, deduplication, novelty bonus and diversity
// metrics.
package scoring

import "github.com/aiwot/reputation-engine/internal/wottype"

// GateReason names why a record contributed zero despite parsing to a
// recognised type.
type GateReason string

const (
	GateEmptyContent  GateReason = "empty content"
	GateAttesterTrust GateReason = "attester trust below gate"
)

// BreakdownEntry is one per-attestation record in ScoreResult.Breakdown,
// carrying full provenance for the contribution (or lack of one).
type BreakdownEntry struct {
	AttestationID string
	Author        wottype.Key
	Type          wottype.AttestationType
	// Accepted reports whether the record carried a recognised type tag and
	// a target-key tag to be accepted into scoring. Records
	// with Accepted=false never contribute and are excluded from every
	// count in Result; they are kept here only for diagnostics.
	Accepted        bool
	CreatedAt       int64
	ZapSats         int64
	ZapWeight       float64
	Decay           float64
	AttesterTrust   float64
	AttesterDisplay int
	Novel           bool
	Contribution    float64
	Gated           bool
	GateReason      GateReason
}

// Diversity is the sybil-resistance metric over accepted contributions.
type Diversity struct {
	Diversity        float64
	UniqueAttesters  int
	MaxAttesterShare float64
	TopAttester      wottype.Key
	HasTopAttester   bool
}

// Result is the output of the Scoring Kernel.
type Result struct {
	Raw              float64
	Display          int
	AttestationCount int
	PositiveCount    int
	NegativeCount    int
	GatedCount       int
	Breakdown        []BreakdownEntry
	Diversity        Diversity
}

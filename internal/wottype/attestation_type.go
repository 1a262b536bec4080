package wottype

// AttestationType is the closed set of recognised attestation verdicts
// Positive and negative sets are disjoint.
type AttestationType string

const (
	ServiceQuality     AttestationType = "service-quality"
	WorkCompleted      AttestationType = "work-completed"
	IdentityContinuity AttestationType = "identity-continuity"
	GeneralTrust       AttestationType = "general-trust"
	Warning            AttestationType = "warning"
	Dispute            AttestationType = "dispute"
)

// typeMultipliers gives each recognised type its scoring multiplier.
var typeMultipliers = map[AttestationType]float64{
	ServiceQuality:     1.5,
	WorkCompleted:      1.2,
	IdentityContinuity: 1.0,
	GeneralTrust:       0.8,
	Warning:            -0.8,
	Dispute:            -1.5,
}

// Multiplier returns the type multiplier and whether t is recognised.
func (t AttestationType) Multiplier() (float64, bool) {
	m, ok := typeMultipliers[t]
	return m, ok
}

// Valid reports whether t is one of the six recognised types.
func (t AttestationType) Valid() bool {
	_, ok := typeMultipliers[t]
	return ok
}

// Negative reports whether t carries a negative multiplier.
func (t AttestationType) Negative() bool {
	m, ok := typeMultipliers[t]
	return ok && m < 0
}

// Positive reports whether t carries a positive multiplier.
func (t AttestationType) Positive() bool {
	m, ok := typeMultipliers[t]
	return ok && m > 0
}

// AllTypes returns every recognised attestation type, in a stable order.
func AllTypes() []AttestationType {
	return []AttestationType{
		ServiceQuality, WorkCompleted, IdentityContinuity,
		GeneralTrust, Warning, Dispute,
	}
}

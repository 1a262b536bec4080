// Package relay implements the Relay Aggregator: a concurrent fan-out query
// layer over untrusted relays, joined with revocation deletions and payment
// receipts, feeding the Scoring Kernel.
package relay

import "github.com/aiwot/reputation-engine/internal/wotevent"

// Filter is the subscribe-side filter sent as:
//
//	("REQ", SUB_ID, { kinds, "#L", "#l", "#p", authors, ids, "#e", since, limit })
type Filter struct {
	Kinds      []int
	Namespace  string   // matches "#L"
	Type       string   // matches "#l", optional
	Target     string   // matches "#p", optional
	Authors    []string // optional
	IDs        []string // optional
	References []string // matches "#e", optional
	Since      int64
	Limit      int
}

// attestationFilter builds the filter for querying attestations about target.
func attestationFilter(target string) Filter {
	return Filter{
		Kinds:     []int{wotevent.KindAttestation},
		Namespace: wotevent.Namespace,
		Target:    target,
	}
}

// revocationFilter builds the filter for querying revocations by authors.
func revocationFilter(authors []string) Filter {
	return Filter{
		Kinds:   []int{wotevent.KindRevocation},
		Authors: authors,
	}
}

// zapFilter builds the filter for querying payment receipts referencing ids.
func zapFilter(ids []string) Filter {
	return Filter{
		Kinds:      []int{wotevent.KindPaymentReceipt},
		References: ids,
	}
}

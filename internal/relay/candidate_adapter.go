package relay

import (
	"context"

	"github.com/aiwot/reputation-engine/internal/candidate"
	"github.com/aiwot/reputation-engine/internal/wotevent"
)

// CandidatePublisher adapts an Aggregator to candidate.Publisher. The
// Candidate Store has no dependency on this package; this adapter is the
// orchestration glue that wires the two together without inverting that
// dependency.
type CandidatePublisher struct {
	Aggregator *Aggregator
}

// PublishAll implements candidate.Publisher.
func (p CandidatePublisher) PublishAll(ctx context.Context, ev wotevent.Event) ([]candidate.PublishResult, error) {
	results, err := p.Aggregator.PublishAll(ctx, ev)
	out := make([]candidate.PublishResult, len(results))
	for i, r := range results {
		out[i] = candidate.PublishResult{Relay: r.Relay, Accepted: r.Accepted, Reason: r.Reason}
	}
	return out, err
}

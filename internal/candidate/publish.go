package candidate

import (
	"context"

	"github.com/aiwot/reputation-engine/internal/woterrors"
)

// ConfirmAndPublish is an atomic convenience: confirm, sign, publish, then
// mark_published with the resulting event id. A failure in signing or
// publishing leaves the candidate in confirmed rather than rolling back the
// confirmation, matching the state machine's one-way transitions.
func (s *Store) ConfirmAndPublish(ctx context.Context, id string, edits Edits, signer Signer, publisher Publisher) (Candidate, error) {
	c, err := s.Confirm(id, edits)
	if err != nil {
		return Candidate{}, err
	}

	ev, err := signer.Sign(c.Type, c.Target, c.Comment, c.EventRef)
	if err != nil {
		return c, err
	}

	results, err := publisher.PublishAll(ctx, ev)
	if err != nil {
		return c, allRelaysFailedError(ev.ID, results, err)
	}

	return s.MarkPublished(id, ev.ID)
}

// PublishAllConfirmed iterates every confirmed candidate and attempts
// ConfirmAndPublish's publish-and-mark tail for each. Per-candidate errors
// are collected and returned, never thrown; one failing candidate never
// stops the rest.
func (s *Store) PublishAllConfirmed(ctx context.Context, signer Signer, publisher Publisher) map[string]error {
	confirmed := s.List(Filter{Status: StatusConfirmed, Limit: s.cfg.maxCandidates()})

	errs := make(map[string]error)
	for _, c := range confirmed {
		ev, err := signer.Sign(c.Type, c.Target, c.Comment, c.EventRef)
		if err != nil {
			errs[c.ID] = err
			continue
		}
		results, err := publisher.PublishAll(ctx, ev)
		if err != nil {
			errs[c.ID] = allRelaysFailedError(ev.ID, results, err)
			continue
		}
		if _, err := s.MarkPublished(c.ID, ev.ID); err != nil {
			errs[c.ID] = err
		}
	}
	return errs
}

func allRelaysFailedError(eventID string, results []PublishResult, cause error) error {
	if cause != nil {
		return cause
	}
	return woterrors.AllRelaysFailed(eventID)
}

// Package receipt builds canonical attestation bodies from service-result
// events: the bridge between a completed, paid-for piece of work and a
// publishable trust claim about the party that performed it.
package receipt

import (
	"fmt"
	"strings"

	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/woterrors"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// Options customises Build's output. Zero values mean "unset": Type falls
// back to service-quality, Rating and FreeText are omitted from the comment
// when not provided.
type Options struct {
	Type      wottype.AttestationType
	HasRating bool
	Rating    int
	FreeText  string
}

// Body is the canonical, publishable shape produced from a ServiceResult: a
// type, target, human/machine-readable comment, reference to the result
// event, and the tag set a signer would attach before publishing.
type Body struct {
	Type     wottype.AttestationType
	Target   string
	Comment  string
	EventRef string
	Tags     []wotevent.Tag
}

// Build constructs a Body from result. It rejects a result with no provider
// key or no result event id — both are required to form a meaningful claim.
func Build(result wotevent.ServiceResult, opts Options) (Body, error) {
	if strings.TrimSpace(result.ProviderKey) == "" {
		return Body{}, woterrors.MissingField("provider_key")
	}
	if strings.TrimSpace(result.ResultEventID) == "" {
		return Body{}, woterrors.MissingField("result_event_id")
	}

	typ := opts.Type
	if typ == "" {
		typ = wottype.ServiceQuality
	}

	rating := opts.Rating
	if opts.HasRating {
		if rating < 1 {
			rating = 1
		} else if rating > 5 {
			rating = 5
		}
	}

	comment := buildComment(result, opts, rating)

	tags := []wotevent.Tag{
		{"L", wotevent.Namespace},
		{"l", string(typ), wotevent.Namespace},
		{"p", result.ProviderKey},
		{"e", result.ResultEventID},
	}

	return Body{
		Type:     typ,
		Target:   result.ProviderKey,
		Comment:  comment,
		EventRef: result.ResultEventID,
		Tags:     tags,
	}, nil
}

// buildComment assembles the pipe-separated receipt comment, omitting any
// segment whose source value is absent.
func buildComment(result wotevent.ServiceResult, opts Options, rating int) string {
	segments := []string{"DVM receipt"}

	if result.RequestKind != 0 {
		segments = append(segments, fmt.Sprintf("kind:%d (%s)", result.RequestKind, kindName(result.RequestKind)))
	}
	if result.HasAmount {
		segments = append(segments, fmt.Sprintf("%d sats", result.AmountSats))
	}
	if opts.HasRating {
		segments = append(segments, fmt.Sprintf("rating:%d/5", rating))
	}
	if strings.TrimSpace(opts.FreeText) != "" {
		segments = append(segments, opts.FreeText)
	}

	return strings.Join(segments, " | ")
}

package receipt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwot/reputation-engine/internal/wotevent"
)

func TestParseServiceResult_ExtractsFieldsFromTags(t *testing.T) {
	ev := wotevent.Event{
		ID:     "result-evt",
		Kind:   6050,
		Author: "P",
		Tags: []wotevent.Tag{
			{"e", "R"},
			{"p", "U"},
			{"amount", "21000"},
		},
	}

	result, ok := wotevent.ParseServiceResult(ev)
	require.True(t, ok)
	assert.Equal(t, 5050, result.RequestKind)
	assert.Equal(t, "p", result.ProviderKey)
	assert.Equal(t, "U", result.RequesterKey)
	assert.Equal(t, "R", result.RequestEventID)
	assert.Equal(t, int64(21), result.AmountSats)
	assert.True(t, result.HasAmount)
}

func TestParseServiceResult_RejectsKindOutsideRange(t *testing.T) {
	_, ok := wotevent.ParseServiceResult(wotevent.Event{ID: "x", Kind: 5999, Author: "p"})
	assert.False(t, ok)

	_, ok = wotevent.ParseServiceResult(wotevent.Event{ID: "x", Kind: 7000, Author: "p"})
	assert.False(t, ok)
}

func TestBuild_DefaultsTypeAndOmitsAbsentSegments(t *testing.T) {
	result := wotevent.ServiceResult{
		ResultEventID: "result-evt",
		RequestKind:   5050,
		ProviderKey:   "p",
		RequesterKey:  "u",
	}

	body, err := Build(result, Options{})
	require.NoError(t, err)
	assert.Equal(t, "service-quality", string(body.Type))
	assert.Equal(t, "p", body.Target)
	assert.Equal(t, "result-evt", body.EventRef)
	assert.Equal(t, "DVM receipt | kind:5050 (code-review)", body.Comment)
}

func TestBuild_IncludesAmountAndClampedRating(t *testing.T) {
	result := wotevent.ServiceResult{
		ResultEventID: "result-evt",
		RequestKind:   5050,
		ProviderKey:   "p",
		AmountSats:    21,
		HasAmount:     true,
	}

	body, err := Build(result, Options{HasRating: true, Rating: 9, FreeText: "great turnaround"})
	require.NoError(t, err)
	assert.Equal(t, "DVM receipt | kind:5050 (code-review) | 21 sats | rating:5/5 | great turnaround", body.Comment)
}

func TestBuild_ClampsLowRating(t *testing.T) {
	result := wotevent.ServiceResult{ResultEventID: "evt", ProviderKey: "p"}
	body, err := Build(result, Options{HasRating: true, Rating: 0})
	require.NoError(t, err)
	assert.Contains(t, body.Comment, "rating:1/5")
}

func TestBuild_RejectsMissingProviderKey(t *testing.T) {
	_, err := Build(wotevent.ServiceResult{ResultEventID: "evt"}, Options{})
	assert.Error(t, err)
}

func TestBuild_RejectsMissingResultEventID(t *testing.T) {
	_, err := Build(wotevent.ServiceResult{ProviderKey: "p"}, Options{})
	assert.Error(t, err)
}

func TestBuild_AcceptsGeneratedRequestAndResultIDs(t *testing.T) {
	resultEventID := uuid.NewString()
	requestEventID := uuid.NewString()

	result := wotevent.ServiceResult{
		ResultEventID:  resultEventID,
		RequestEventID: requestEventID,
		RequestKind:    5050,
		ProviderKey:    "p",
	}

	body, err := Build(result, Options{})
	require.NoError(t, err)
	assert.Equal(t, resultEventID, body.EventRef)
}

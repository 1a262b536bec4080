package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwot/reputation-engine/internal/engineconfig"
	"github.com/aiwot/reputation-engine/internal/scoring"
	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// fakeClient is an in-memory Client: each relay name maps to a fixed set of
// events to return from Query, and Publish always reports its canned outcome.
type fakeClient struct {
	byRelay        map[string][]wotevent.Event
	publishAccept  map[string]bool
	publishReason  map[string]string
	queryCallCount map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		byRelay:        make(map[string][]wotevent.Event),
		publishAccept:  make(map[string]bool),
		publishReason:  make(map[string]string),
		queryCallCount: make(map[string]int),
	}
}

func (f *fakeClient) Query(ctx context.Context, relayURL string, filter Filter) ([]wotevent.Event, error) {
	f.queryCallCount[relayURL]++
	events := f.byRelay[relayURL]
	if filter.Kinds != nil {
		var filtered []wotevent.Event
		for _, ev := range events {
			for _, k := range filter.Kinds {
				if ev.Kind == k {
					filtered = append(filtered, ev)
					break
				}
			}
		}
		events = filtered
	}
	return events, nil
}

func (f *fakeClient) Publish(ctx context.Context, relayURL string, ev wotevent.Event) (bool, string, error) {
	return f.publishAccept[relayURL], f.publishReason[relayURL], nil
}

func attEvent(id, author, target string, createdAt int64, typ string) wotevent.Event {
	return wotevent.Event{
		ID:        id,
		Kind:      wotevent.KindAttestation,
		Author:    author,
		CreatedAt: createdAt,
		Content:   "did great work",
		Tags: []wotevent.Tag{
			{"l", typ, "ai.wot"},
			{"p", target},
		},
	}
}

func testRelayConfig() engineconfig.RelayConfig {
	return engineconfig.RelayConfig{PerRelayTimeoutMS: 1000, GlobalSlackMS: 200}
}

func TestAggregator_QueryAttestations_MergesAcrossRelaysByID(t *testing.T) {
	target := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	author := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	ev := attEvent("evt-1", author, target, 1_700_000_000, "service-quality")

	client := newFakeClient()
	client.byRelay["relay-a"] = []wotevent.Event{ev}
	client.byRelay["relay-b"] = []wotevent.Event{ev} // same id, duplicate copy

	agg := New([]string{"relay-a", "relay-b"}, client, testRelayConfig(), scoring.DefaultConfig(), nil)

	attestations, err := agg.QueryAttestations(context.Background(), wottype.Key(target))
	require.NoError(t, err)
	require.Len(t, attestations, 1)
	assert.Equal(t, "evt-1", attestations[0].ID)
}

func TestAggregator_QueryAttestations_ExcludesSelfAttestation(t *testing.T) {
	target := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	ev := attEvent("evt-self", target, target, 1_700_000_000, "service-quality")

	client := newFakeClient()
	client.byRelay["relay-a"] = []wotevent.Event{ev}

	agg := New([]string{"relay-a"}, client, testRelayConfig(), scoring.DefaultConfig(), nil)

	attestations, err := agg.QueryAttestations(context.Background(), wottype.Key(target))
	require.NoError(t, err)
	assert.Empty(t, attestations)
}

func TestAggregator_QueryAttestations_RevocationRemovesAuthorsRecord(t *testing.T) {
	target := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	author := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	att := attEvent("evt-1", author, target, 1_700_000_000, "service-quality")
	rev := wotevent.Event{
		ID:      "rev-1",
		Kind:    wotevent.KindRevocation,
		Author:  author,
		Content: "withdrawn",
		Tags: []wotevent.Tag{
			{"k", "1985"},
			{"e", "evt-1"},
		},
	}

	client := newFakeClient()
	client.byRelay["relay-a"] = []wotevent.Event{att, rev}

	agg := New([]string{"relay-a"}, client, testRelayConfig(), scoring.DefaultConfig(), nil)

	attestations, err := agg.QueryAttestations(context.Background(), wottype.Key(target))
	require.NoError(t, err)
	assert.Empty(t, attestations)
}

func TestAggregator_QueryAttestations_RevocationOnlyRemovesTheNamedAttestation(t *testing.T) {
	target := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	author := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	att1 := attEvent("evt-1", author, target, 1_700_000_000, "service-quality")
	att2 := attEvent("evt-2", author, target, 1_700_000_100, "service-quality")
	rev := wotevent.Event{
		ID:      "rev-1",
		Kind:    wotevent.KindRevocation,
		Author:  author,
		Content: "withdrawn",
		Tags: []wotevent.Tag{
			{"k", "1985"},
			{"e", "evt-1"}, // names only evt-1; evt-2 must survive
		},
	}

	client := newFakeClient()
	client.byRelay["relay-a"] = []wotevent.Event{att1, att2, rev}

	agg := New([]string{"relay-a"}, client, testRelayConfig(), scoring.DefaultConfig(), nil)

	attestations, err := agg.QueryAttestations(context.Background(), wottype.Key(target))
	require.NoError(t, err)
	require.Len(t, attestations, 1)
	assert.Equal(t, "evt-2", attestations[0].ID)
}

func TestAggregator_PublishAll_FailsOnlyWhenEveryRelayRejects(t *testing.T) {
	client := newFakeClient()
	client.publishAccept["relay-a"] = false
	client.publishReason["relay-a"] = "duplicate"
	client.publishAccept["relay-b"] = true

	agg := New([]string{"relay-a", "relay-b"}, client, testRelayConfig(), scoring.DefaultConfig(), nil)

	results, err := agg.PublishAll(context.Background(), wotevent.Event{ID: "evt-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	client2 := newFakeClient()
	client2.publishAccept["relay-a"] = false
	client2.publishAccept["relay-b"] = false

	agg2 := New([]string{"relay-a", "relay-b"}, client2, testRelayConfig(), scoring.DefaultConfig(), nil)
	_, err = agg2.PublishAll(context.Background(), wotevent.Event{ID: "evt-2"})
	assert.Error(t, err)
}

func TestAggregator_Score_RecursesIntoAttesterAndBreaksCycles(t *testing.T) {
	target := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	attester := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	// attester vouches for target, and target vouches back for attester
	// (a two-node cycle): Score must terminate instead of recursing forever.
	attOnTarget := attEvent("evt-on-target", attester, target, 1_700_000_000, "service-quality")
	attOnAttester := attEvent("evt-on-attester", target, attester, 1_700_000_000, "service-quality")

	client := newFakeClient()
	client.byRelay["relay-a"] = []wotevent.Event{attOnTarget, attOnAttester}

	cfg := scoring.DefaultConfig()
	cfg.Now = 1_700_000_100

	agg := New([]string{"relay-a"}, client, testRelayConfig(), cfg, nil)

	result, err := agg.Score(context.Background(), wottype.Key(target))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AttestationCount)
	assert.Greater(t, result.Raw, 0.0)
}

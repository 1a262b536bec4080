package candidate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwot/reputation-engine/internal/wotevent"
)

// recordingSigner signs deterministically, by target. Its accept map is not
// consulted: recordingPublisher decides acceptance from the event id.
type recordingSigner struct {
	accept map[string]bool
}

func (s recordingSigner) Sign(typ, target, comment, eventRef string) (wotevent.Event, error) {
	return wotevent.Event{ID: fmt.Sprintf("evt-%s", target), Kind: 1985}, nil
}

// recordingPublisher rejects the "target-bad" event id, accepting everything
// else, without a real relay network.
type recordingPublisher struct{}

func (p recordingPublisher) PublishAll(ctx context.Context, ev wotevent.Event) ([]PublishResult, error) {
	if ev.ID == "evt-target-bad" {
		return []PublishResult{{Relay: "relay-a", Accepted: false, Reason: "rejected"}}, allRelaysFailedError(ev.ID, nil, nil)
	}
	return []PublishResult{{Relay: "relay-a", Accepted: true}}, nil
}

func TestStore_AddRequiresTypeTargetComment(t *testing.T) {
	s := New(Config{})
	_, err := s.Add(NewCandidate{Type: "", Target: "target", Comment: "comment", Source: "manual"})
	assert.Error(t, err)
	_, err = s.Add(NewCandidate{Type: "service-quality", Target: "", Comment: "comment", Source: "manual"})
	assert.Error(t, err)
	_, err = s.Add(NewCandidate{Type: "service-quality", Target: "target", Comment: "", Source: "manual"})
	assert.Error(t, err)
}

func TestStore_Lifecycle_PendingConfirmedPublished(t *testing.T) {
	s := New(Config{})
	c, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-key", Comment: "did great work", Source: "manual"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, c.Status)

	c, err = s.Confirm(c.ID, Edits{Comment: "E"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, c.Status)
	assert.Equal(t, "E", c.Comment)

	c, err = s.MarkPublished(c.ID, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, c.Status)
	assert.Equal(t, "evt-1", c.EventID)

	_, err = s.Confirm(c.ID, Edits{})
	assert.Error(t, err)

	_, err = s.Reject(c.ID, "too late")
	assert.Error(t, err)
}

func TestStore_Reject_OnlyFromPending(t *testing.T) {
	s := New(Config{})
	c, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-key", Comment: "comment", Source: "manual"})
	require.NoError(t, err)

	c, err = s.Confirm(c.ID, Edits{})
	require.NoError(t, err)

	_, err = s.Reject(c.ID, "changed my mind")
	assert.Error(t, err)
}

func TestStore_Expiry_MovesStalePendingOnEnumeration(t *testing.T) {
	s := New(Config{MaxAge: time.Hour})
	c, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-key", Comment: "comment", Source: "manual"})
	require.NoError(t, err)

	s.mu.Lock()
	s.byID[c.ID].CreatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	pending := s.List(Filter{Status: StatusPending})
	assert.Empty(t, pending)

	stats := s.Stats()
	assert.Equal(t, 1, stats[StatusExpired])
}

func TestStore_List_SortsByCreatedAtDescending(t *testing.T) {
	s := New(Config{})
	first, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-a", Comment: "first", Source: "manual"})
	require.NoError(t, err)
	s.mu.Lock()
	s.byID[first.ID].CreatedAt = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	second, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-b", Comment: "second", Source: "manual"})
	require.NoError(t, err)

	list := s.List(Filter{})
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestStore_Eviction_PrefersTerminalOverPending(t *testing.T) {
	s := New(Config{MaxCandidates: 2})
	c1, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-a", Comment: "first", Source: "manual"})
	require.NoError(t, err)
	_, err = s.Reject(c1.ID, "no")
	require.NoError(t, err)

	_, err = s.Add(NewCandidate{Type: "service-quality", Target: "target-b", Comment: "second", Source: "manual"})
	require.NoError(t, err)

	// store was at capacity (2) when this third Add ran, so it evicted the
	// terminal (rejected) c1 rather than the pending second candidate.
	third, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-c", Comment: "third", Source: "manual"})
	require.NoError(t, err)

	list := s.List(Filter{})
	ids := map[string]bool{}
	for _, c := range list {
		ids[c.ID] = true
	}
	assert.False(t, ids[c1.ID])
	assert.True(t, ids[third.ID])
}

func TestStore_Load_PreservesTerminalStatus(t *testing.T) {
	s := New(Config{})
	s.Load([]Candidate{
		{ID: "preloaded-1", Status: StatusPublished, Type: "service-quality", Target: "t", Comment: "c", CreatedAt: time.Now()},
	})

	list := s.List(Filter{Status: StatusPending})
	assert.Empty(t, list)

	all := s.List(Filter{})
	require.Len(t, all, 1)
	assert.Equal(t, StatusPublished, all[0].Status)
}

func TestStore_PublishAllConfirmed_CollectsPerCandidateErrors(t *testing.T) {
	s := New(Config{})
	ok, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-ok", Comment: "comment", Source: "manual"})
	require.NoError(t, err)
	_, err = s.Confirm(ok.ID, Edits{})
	require.NoError(t, err)

	bad, err := s.Add(NewCandidate{Type: "service-quality", Target: "target-bad", Comment: "comment", Source: "manual"})
	require.NoError(t, err)
	_, err = s.Confirm(bad.ID, Edits{})
	require.NoError(t, err)

	signer := recordingSigner{accept: map[string]bool{"target-ok": true, "target-bad": false}}
	publisher := recordingPublisher{}

	errs := s.PublishAllConfirmed(context.Background(), signer, publisher)
	assert.NoError(t, errs[ok.ID])
	assert.Error(t, errs[bad.ID])

	published := s.List(Filter{Status: StatusPublished})
	require.Len(t, published, 1)
	assert.Equal(t, ok.ID, published[0].ID)
}

func TestStore_StartExpirySweep_MovesStalePendingWithoutEnumeration(t *testing.T) {
	s := New(Config{MaxAge: time.Millisecond})
	c, err := s.Add(NewCandidate{Type: "service-quality", Target: "target", Comment: "comment", Source: "manual"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartExpirySweep(ctx, 5*time.Millisecond))

	require.Eventually(t, func() bool {
		s.mu.Lock()
		status := s.byID[c.ID].Status
		s.mu.Unlock()
		return status == StatusExpired
	}, 3*time.Second, 5*time.Millisecond) // cron/v3 runs sub-second intervals once a second
}

func TestStore_StartExpirySweep_RejectsNonPositiveInterval(t *testing.T) {
	s := New(Config{})
	err := s.StartExpirySweep(context.Background(), 0)
	assert.Error(t, err)
}

func TestStore_Add_CarriesEventRefAndMetadataThroughToSign(t *testing.T) {
	s := New(Config{})
	c, err := s.Add(NewCandidate{
		Type:     "service-quality",
		Target:   "target-key",
		Comment:  "comment",
		Source:   "dvm",
		EventRef: "result-evt-1",
		Metadata: map[string]string{"amount_sats": "21000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "result-evt-1", c.EventRef)
	assert.Equal(t, "21000", c.Metadata["amount_sats"])
	assert.Empty(t, c.EventID) // published id is distinct and not yet set

	var gotEventRef string
	signer := signerFunc(func(typ, target, comment, eventRef string) (wotevent.Event, error) {
		gotEventRef = eventRef
		return wotevent.Event{ID: "evt-published"}, nil
	})

	c, err = s.ConfirmAndPublish(context.Background(), c.ID, Edits{}, signer, recordingPublisher{})
	require.NoError(t, err)
	assert.Equal(t, "result-evt-1", gotEventRef)
	assert.Equal(t, "evt-published", c.EventID)
	assert.Equal(t, "result-evt-1", c.EventRef) // EventRef survives publish, distinct from EventID
}

type signerFunc func(typ, target, comment, eventRef string) (wotevent.Event, error)

func (f signerFunc) Sign(typ, target, comment, eventRef string) (wotevent.Event, error) {
	return f(typ, target, comment, eventRef)
}

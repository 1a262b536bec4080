package relay

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiwot/reputation-engine/internal/engineconfig"
	"github.com/aiwot/reputation-engine/internal/scoring"
	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/wotlog"
	"github.com/aiwot/reputation-engine/internal/wottype"
	"github.com/aiwot/reputation-engine/internal/woterrors"
)

// Aggregator is the Relay Aggregator: it fans queries out to a fixed set of
// untrusted relays concurrently, merges the results, and drives the Scoring
// Kernel with a resolveAttester callback backed by a recursion cache.
type Aggregator struct {
	relays     []string
	client     Client
	relayCfg   engineconfig.RelayConfig
	scoringCfg scoring.Config
	log        *wotlog.Logger
	metrics    *Metrics
}

// New builds an Aggregator against relays, using client as the per-relay
// transport (production callers pass NewWebsocketClient(); tests pass a fake).
func New(relays []string, client Client, relayCfg engineconfig.RelayConfig, scoringCfg scoring.Config, log *wotlog.Logger) *Aggregator {
	return &Aggregator{
		relays:     relays,
		client:     client,
		relayCfg:   relayCfg,
		scoringCfg: scoringCfg,
		log:        log,
	}
}

// WithMetrics attaches prometheus counters/histograms. A nil Metrics is safe:
// metrics recording always checks for it.
func (a *Aggregator) WithMetrics(m *Metrics) *Aggregator {
	a.metrics = m
	return a
}

// fanOut runs fn against every relay concurrently, bounding each call by the
// per-relay timeout and the whole fan-out by the global timeout. Results and
// errors are collected without any call short-circuiting another: one
// misbehaving relay never blocks or cancels the rest.
func (a *Aggregator) fanOut(ctx context.Context, fn func(ctx context.Context, relayURL string) ([]wotevent.Event, error)) [][]wotevent.Event {
	globalCtx, globalCancel := context.WithTimeout(ctx, a.relayCfg.GlobalTimeout())
	defer globalCancel()

	results := make([][]wotevent.Event, len(a.relays))
	var wg sync.WaitGroup
	for i, relayURL := range a.relays {
		wg.Add(1)
		go func(i int, relayURL string) {
			defer wg.Done()
			relayCtx, cancel := context.WithTimeout(globalCtx, a.relayCfg.PerRelayTimeout())
			defer cancel()

			start := time.Now()
			events, err := fn(relayCtx, relayURL)
			a.recordRelayQuery(relayURL, time.Since(start), err)
			if err != nil {
				if a.log != nil {
					a.log.WithContext(ctx).WithError(err).WithField("relay", relayURL).Warn("relay query failed")
				}
				return
			}
			results[i] = events
		}(i, relayURL)
	}
	wg.Wait()
	return results
}

// mergeByID unions event lists from multiple relays, deduplicating by id and
// preferring the first copy seen (relay order is the only tiebreak available
// once ids collide, since all copies of the same id are expected identical).
func mergeByID(lists [][]wotevent.Event) []wotevent.Event {
	seen := make(map[string]bool)
	var out []wotevent.Event
	for _, list := range lists {
		for _, ev := range list {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	return out
}

// QueryRevocations fetches revocations authored by any of authors and
// returns the set of attestation ids those revocations name, keyed by
// attestation id rather than by author: a revocation withdraws only the
// specific attestations its e-tags reference, never every record the
// author ever issued. A revocation event is only honored when it is
// Effective against one of the requested authors, which guards against a
// relay returning a revocation whose author was never actually queried for.
func (a *Aggregator) QueryRevocations(ctx context.Context, authors []wottype.Key) (map[string]bool, error) {
	if len(authors) == 0 {
		return map[string]bool{}, nil
	}
	raw := make([]string, len(authors))
	for i, k := range authors {
		raw[i] = string(k)
	}
	filter := revocationFilter(raw)

	lists := a.fanOut(ctx, func(ctx context.Context, relayURL string) ([]wotevent.Event, error) {
		return a.client.Query(ctx, relayURL, filter)
	})
	events := mergeByID(lists)

	revoked := make(map[string]bool)
	for _, ev := range events {
		rev, ok := wotevent.ParseRevocation(ev)
		if !ok {
			continue
		}
		effective := false
		for _, author := range authors {
			if rev.Effective(string(author)) {
				effective = true
				break
			}
		}
		if !effective {
			continue
		}
		for _, id := range rev.ReferencedIDs {
			revoked[id] = true
		}
	}
	return revoked, nil
}

// QueryZapTotals fetches payment receipts referencing any of ids and sums
// satoshis per referenced attestation id.
func (a *Aggregator) QueryZapTotals(ctx context.Context, ids []string) (map[string]int64, error) {
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}
	filter := zapFilter(ids)

	lists := a.fanOut(ctx, func(ctx context.Context, relayURL string) ([]wotevent.Event, error) {
		return a.client.Query(ctx, relayURL, filter)
	})
	events := mergeByID(lists)

	totals := make(map[string]int64)
	for _, ev := range events {
		attID, sats, ok := wotevent.ParseZapAmountSats(ev)
		if !ok {
			continue
		}
		totals[attID] += sats
	}
	return totals, nil
}

// QueryAttestations fetches attestations about target from every relay,
// excludes self-attestations (author == target), and removes any record
// individually named by an effective revocation — a revocation only
// withdraws the attestation ids it references, leaving an author's other
// attestations about the same target untouched.
func (a *Aggregator) QueryAttestations(ctx context.Context, target wottype.Key) ([]wotevent.Attestation, error) {
	filter := attestationFilter(string(target))

	lists := a.fanOut(ctx, func(ctx context.Context, relayURL string) ([]wotevent.Event, error) {
		return a.client.Query(ctx, relayURL, filter)
	})
	events := mergeByID(lists)
	if len(events) == 0 {
		return nil, nil
	}

	attestations := make([]wotevent.Attestation, 0, len(events))
	authorSet := make(map[wottype.Key]bool)
	for _, ev := range events {
		att := wotevent.FromEvent(ev)
		if strings.EqualFold(string(att.Author), string(target)) {
			continue // self-attestation: never admitted to scoring
		}
		attestations = append(attestations, att)
		authorSet[att.Author] = true
	}

	authors := make([]wottype.Key, 0, len(authorSet))
	for k := range authorSet {
		authors = append(authors, k)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i] < authors[j] })

	revoked, err := a.QueryRevocations(ctx, authors)
	if err != nil {
		return nil, err
	}
	if len(revoked) == 0 {
		return attestations, nil
	}

	filtered := attestations[:0:0]
	for _, att := range attestations {
		if revoked[att.ID] {
			continue
		}
		filtered = append(filtered, att)
	}
	return filtered, nil
}

// Publish fans ev out to every relay in relays, never short-circuiting on a
// single rejection, and returns one PublishResult per relay attempted.
func (a *Aggregator) Publish(ctx context.Context, ev wotevent.Event, relays []string) []PublishResult {
	globalCtx, cancel := context.WithTimeout(ctx, a.relayCfg.GlobalTimeout())
	defer cancel()

	results := make([]PublishResult, len(relays))
	var wg sync.WaitGroup
	for i, relayURL := range relays {
		wg.Add(1)
		go func(i int, relayURL string) {
			defer wg.Done()
			relayCtx, cancel := context.WithTimeout(globalCtx, a.relayCfg.PerRelayTimeout())
			defer cancel()

			accepted, reason, err := a.client.Publish(relayCtx, relayURL, ev)
			if err != nil {
				results[i] = PublishResult{Relay: relayURL, Accepted: false, Reason: err.Error()}
				return
			}
			results[i] = PublishResult{Relay: relayURL, Accepted: accepted, Reason: reason}
		}(i, relayURL)
	}
	wg.Wait()
	return results
}

// PublishAll fans ev out to the aggregator's configured relay set and
// returns an error only when every relay rejected or failed.
func (a *Aggregator) PublishAll(ctx context.Context, ev wotevent.Event) ([]PublishResult, error) {
	results := a.Publish(ctx, ev, a.relays)
	for _, r := range results {
		if r.Accepted {
			return results, nil
		}
	}
	return results, woterrors.AllRelaysFailed(ev.ID)
}

// Score resolves target's reputation score, recursing into attesters' own
// scores up to the kernel's configured depth via a fresh recursion cache.
// Every call is tagged with a fresh query id, carried on ctx for the
// duration of the call so every log line emitted while resolving target (and
// its recursively-resolved attesters) can be correlated back to this one
// invocation.
func (a *Aggregator) Score(ctx context.Context, target wottype.Key) (scoring.Result, error) {
	ctx = context.WithValue(ctx, wotlog.QueryIDKey, uuid.NewString())
	cache := newRecursionCache()
	return a.scoreWithCache(ctx, target, cache, 0)
}

func (a *Aggregator) scoreWithCache(ctx context.Context, target wottype.Key, cache *recursionCache, depth int) (scoring.Result, error) {
	if cached, ok := cache.lookup(target); ok {
		return cached, nil
	}
	cache.markPending(target)

	attestations, err := a.QueryAttestations(ctx, target)
	if err != nil {
		return scoring.Result{}, err
	}

	ids := make([]string, len(attestations))
	for i, att := range attestations {
		ids[i] = att.ID
	}
	zapTotals, err := a.QueryZapTotals(ctx, ids)
	if err != nil {
		return scoring.Result{}, err
	}

	cfg := a.scoringCfg
	cfg.Depth = depth

	resolve := func(author wottype.Key) scoring.Result {
		result, err := a.scoreWithCache(ctx, author, cache, depth+1)
		if err != nil {
			return scoring.Result{}
		}
		return result
	}

	result := scoring.Score(attestations, zapTotals, cfg, resolve)
	cache.store(target, result)
	a.recordScore(target, result)
	return result, nil
}

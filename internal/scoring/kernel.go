package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// Config carries the Scoring Kernel's tunables. Zero values
// are NOT valid defaults for every field — callers should start from
// DefaultConfig() and override only what they need.
type Config struct {
	HalfLifeDays      float64
	Depth             int
	MaxDepth          int
	NegativeTrustGate int
	Deduplicate       bool
	NoveltyMultiplier float64
	// Now is the reference wall-clock time, in unix seconds. Zero means
	// "use time.Now()" — tests should always set this explicitly so decay
	// is deterministic.
	Now int64
}

// DefaultConfig returns the kernel's default tuning.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:      90,
		Depth:             0,
		MaxDepth:          2,
		NegativeTrustGate: 20,
		Deduplicate:       true,
		NoveltyMultiplier: 1.3,
	}
}

func (c Config) now() int64 {
	if c.Now != 0 {
		return c.Now
	}
	return time.Now().Unix()
}

// ResolveAttesterFunc recursively resolves an attester's own ScoreResult, up
// to Config.MaxDepth; callers typically back this with a memoized, cycle-safe cache.
type ResolveAttesterFunc func(author wottype.Key) Result

// candidate is an attestation plus its parsed type/target, carried through
// dedup and novelty so we only parse tags once.
type candidate struct {
	att      wotevent.Attestation
	typ      wottype.AttestationType
	typeOK   bool
	target   wottype.Key
	targetOK bool
	index    int // original position, for stable tie-breaks
}

type edgeKey struct {
	author wottype.Key
	target wottype.Key
}

type groupKey struct {
	author wottype.Key
	target wottype.Key
	typ    wottype.AttestationType
}

// Score is the Scoring Kernel's single entry point. It is
// pure and total: every input, valid or not, produces a well-formed Result.
func Score(attestations []wotevent.Attestation, zapTotals map[string]int64, cfg Config, resolveAttester ResolveAttesterFunc) Result {
	candidates := make([]candidate, len(attestations))
	for i, a := range attestations {
		typ, typeOK := a.ParseType()
		target, targetOK := a.Target()
		candidates[i] = candidate{att: a, typ: typ, typeOK: typeOK, target: target, targetOK: targetOK, index: i}
	}

	novelMin := noveltyMinimums(candidates)

	surviving := candidates
	if cfg.Deduplicate {
		surviving = deduplicate(candidates)
	}
	sort.SliceStable(surviving, func(i, j int) bool { return surviving[i].index < surviving[j].index })

	var (
		breakdown     []BreakdownEntry
		sumContribute float64
		attestCount   int
		posCount      int
		negCount      int
		gatedCount    int
	)

	now := cfg.now()

	for _, c := range surviving {
		if !c.typeOK || !c.targetOK {
			breakdown = append(breakdown, BreakdownEntry{
				AttestationID: c.att.ID,
				Author:        c.att.Author,
				Type:          c.typ,
				Accepted:      false,
				CreatedAt:     c.att.CreatedAt,
			})
			continue
		}

		attestCount++

		zapSats := zapTotals[c.att.ID]
		zapWeight := zapWeightOf(zapSats)
		decay := decayOf(now, c.att.CreatedAt, cfg.HalfLifeDays)

		attesterTrust, attesterDisplay := attesterTrustOf(cfg, resolveAttester, c.att.Author)

		novel := c.att.CreatedAt == novelMin[edgeKey{author: c.att.Author, target: c.target}]

		gated := false
		var reason GateReason
		if c.typ.Negative() && c.att.IsEmptyContent() {
			gated = true
			reason = GateEmptyContent
		} else if c.typ.Negative() && attesterDisplay < cfg.NegativeTrustGate {
			gated = true
			reason = GateAttesterTrust
		}

		var contribution float64
		if !gated {
			mult, _ := c.typ.Multiplier()
			contribution = zapWeight * attesterTrust * mult * decay
			if novel {
				contribution *= cfg.NoveltyMultiplier
			}
		}

		switch {
		case gated:
			gatedCount++
		case contribution > 0:
			posCount++
		case contribution < 0:
			negCount++
		}

		sumContribute += contribution

		breakdown = append(breakdown, BreakdownEntry{
			AttestationID:   c.att.ID,
			Author:          c.att.Author,
			Type:            c.typ,
			Accepted:        true,
			CreatedAt:       c.att.CreatedAt,
			ZapSats:         zapSats,
			ZapWeight:       zapWeight,
			Decay:           decay,
			AttesterTrust:   attesterTrust,
			AttesterDisplay: attesterDisplay,
			Novel:           novel,
			Contribution:    contribution,
			Gated:           gated,
			GateReason:      reason,
		})
	}

	rawFloored := math.Max(0, sumContribute)
	raw := math.Round(rawFloored*100) / 100
	display := int(math.Min(100, math.Round(raw*10)))

	return Result{
		Raw:              raw,
		Display:          display,
		AttestationCount: attestCount,
		PositiveCount:    posCount,
		NegativeCount:    negCount,
		GatedCount:       gatedCount,
		Breakdown:        breakdown,
		Diversity:        diversityOf(breakdown),
	}
}

// zapWeightOf computes 1.0 + log2(1+sats)*0.5, floored
// at 1.0 for non-positive sats.
func zapWeightOf(sats int64) float64 {
	if sats <= 0 {
		return 1.0
	}
	return 1.0 + math.Log2(1+float64(sats))*0.5
}

// decayOf computes 0.5^(elapsed_days/half_life).
// Future-dated attestations (created_at > now) get decay 1.0, not rejection.
func decayOf(now, createdAt int64, halfLifeDays float64) float64 {
	elapsedSeconds := now - createdAt
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	elapsedDays := float64(elapsedSeconds) / 86400
	return math.Pow(0.5, elapsedDays/halfLifeDays)
}

// attesterTrustOf implements the recursive trust dampening. At
// the depth budget, the attester is assumed trusted enough to escape gating:
// trust 1.0, display 100.
func attesterTrustOf(cfg Config, resolve ResolveAttesterFunc, author wottype.Key) (trust float64, display int) {
	if cfg.Depth >= cfg.MaxDepth || resolve == nil {
		return 1.0, 100
	}
	result := resolve(author)
	if result.Raw > 0 {
		return math.Sqrt(result.Raw), result.Display
	}
	return 1.0, result.Display
}

// noveltyMinimums computes, for every (author, target) edge in the original
// (pre-dedup) candidate list, the minimum created_at.
// Candidates lacking a valid target are skipped: they can never be "novel"
// because they never form a scored edge.
func noveltyMinimums(candidates []candidate) map[edgeKey]int64 {
	mins := make(map[edgeKey]int64)
	for _, c := range candidates {
		if !c.targetOK {
			continue
		}
		key := edgeKey{author: c.att.Author, target: c.target}
		if cur, ok := mins[key]; !ok || c.att.CreatedAt < cur {
			mins[key] = c.att.CreatedAt
		}
	}
	return mins
}

// deduplicate groups candidates with a valid (author, target, type) key,
// keeping the greatest created_at per group (ties broken by lexicographic
// max id). Candidates without a valid type/target pass through untouched —
// they are not part of any group and are reported as unaccepted downstream.
func deduplicate(candidates []candidate) []candidate {
	winners := make(map[groupKey]candidate)
	var passthrough []candidate

	for _, c := range candidates {
		if !c.typeOK || !c.targetOK {
			passthrough = append(passthrough, c)
			continue
		}
		key := groupKey{author: c.att.Author, target: c.target, typ: c.typ}
		cur, ok := winners[key]
		if !ok {
			winners[key] = c
			continue
		}
		if c.att.CreatedAt > cur.att.CreatedAt ||
			(c.att.CreatedAt == cur.att.CreatedAt && c.att.ID > cur.att.ID) {
			winners[key] = c
		}
	}

	out := make([]candidate, 0, len(winners)+len(passthrough))
	for _, w := range winners {
		out = append(out, w)
	}
	out = append(out, passthrough...)
	return out
}

// diversityOf computes a sybil-resistance ratio over the accepted, non-gated,
// strictly-positive-contribution subset of breakdown.
func diversityOf(breakdown []BreakdownEntry) Diversity {
	type authorTotal struct {
		author wottype.Key
		total  float64
		first  int
	}
	totals := make(map[wottype.Key]*authorTotal)
	var order []wottype.Key
	var grandTotal float64
	n := 0

	for i, e := range breakdown {
		if !e.Accepted || e.Gated || e.Contribution <= 0 {
			continue
		}
		n++
		grandTotal += e.Contribution
		if t, ok := totals[e.Author]; ok {
			t.total += e.Contribution
		} else {
			totals[e.Author] = &authorTotal{author: e.Author, total: e.Contribution, first: i}
			order = append(order, e.Author)
		}
	}

	if n == 0 || grandTotal <= 0 {
		return Diversity{}
	}

	u := len(totals)
	var maxShare float64
	var top wottype.Key
	firstSeen := -1
	for _, author := range order {
		t := totals[author]
		share := t.total / grandTotal
		if share > maxShare || (share == maxShare && (firstSeen == -1 || t.first < firstSeen)) {
			maxShare = share
			top = author
			firstSeen = t.first
		}
	}

	diversity := math.Round(math.Min(1, float64(u)/float64(n))*(1-maxShare)*100) / 100

	return Diversity{
		Diversity:        diversity,
		UniqueAttesters:  u,
		MaxAttesterShare: maxShare,
		TopAttester:      top,
		HasTopAttester:   true,
	}
}

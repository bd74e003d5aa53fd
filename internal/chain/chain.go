// Package chain indexes a single day's option-price surface and answers
// strike-selection queries with caching.
package chain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// nearSpotGranularity quantizes spot prices used as cache keys so that
// nearby spots share one cache entry.
const nearSpotGranularity = 0.25

type partitionKey struct {
	Type models.OptionType
	Spot float64
	Tick int
}

// Index provides fast lookups over one day's option data. It is built once
// per day and safe for concurrent readers afterwards.
type Index struct {
	mu sync.RWMutex

	data       map[int]models.Surface // tick -> surface
	allStrikes []float64              // distinct strikes across the day, ascending

	nearCache map[float64][]float64
	otmCache  map[partitionKey][]float64
	itmCache  map[partitionKey][]float64

	hits   uint64
	misses uint64
}

// New builds an index over the day's option data.
func New(data map[int]models.Surface) *Index {
	idx := &Index{
		data:      data,
		nearCache: make(map[float64][]float64),
		otmCache:  make(map[partitionKey][]float64),
		itmCache:  make(map[partitionKey][]float64),
	}
	idx.buildStrikeIndex()
	return idx
}

func (idx *Index) buildStrikeIndex() {
	seen := make(map[float64]bool)
	for _, surface := range idx.data {
		for _, strikes := range surface {
			for strike := range strikes {
				seen[strike] = true
			}
		}
	}
	idx.allStrikes = make([]float64, 0, len(seen))
	for strike := range seen {
		idx.allStrikes = append(idx.allStrikes, strike)
	}
	sort.Float64s(idx.allStrikes)
}

// AllStrikes returns the day's distinct strikes in ascending order.
func (idx *Index) AllStrikes() []float64 {
	out := make([]float64, len(idx.allStrikes))
	copy(out, idx.allStrikes)
	return out
}

// OptionPrice returns the quote for (tick, type, strike) if present.
func (idx *Index) OptionPrice(tick int, t models.OptionType, strike float64) (float64, bool) {
	surface, ok := idx.data[tick]
	if !ok {
		return 0, false
	}
	return surface.Price(t, strike)
}

// StrikesNearSpot returns the n strikes closest to spot, nearest first.
// Results are cached by spot quantized to the nearest 0.25.
func (idx *Index) StrikesNearSpot(spot float64, n int) []float64 {
	key := math.Round(spot/nearSpotGranularity) * nearSpotGranularity

	idx.mu.RLock()
	cached, ok := idx.nearCache[key]
	idx.mu.RUnlock()
	if ok {
		idx.recordHit()
		return cached
	}

	strikes := make([]float64, len(idx.allStrikes))
	copy(strikes, idx.allStrikes)
	sort.SliceStable(strikes, func(i, j int) bool {
		return math.Abs(strikes[i]-spot) < math.Abs(strikes[j]-spot)
	})
	if n < len(strikes) {
		strikes = strikes[:n]
	}

	idx.mu.Lock()
	idx.misses++
	idx.nearCache[key] = strikes
	idx.mu.Unlock()
	return strikes
}

// OTMStrikes returns the out-of-the-money strikes for the given type at a
// tick, ascending. For calls these are strikes above spot, for puts below.
func (idx *Index) OTMStrikes(spot float64, t models.OptionType, tick int) []float64 {
	key := partitionKey{Type: t, Spot: spot, Tick: tick}

	idx.mu.RLock()
	cached, ok := idx.otmCache[key]
	idx.mu.RUnlock()
	if ok {
		idx.recordHit()
		return cached
	}

	strikes := idx.partition(spot, t, tick, true)

	idx.mu.Lock()
	idx.misses++
	idx.otmCache[key] = strikes
	idx.mu.Unlock()
	return strikes
}

// ITMStrikes returns the in-the-money strikes for the given type at a tick,
// ascending.
func (idx *Index) ITMStrikes(spot float64, t models.OptionType, tick int) []float64 {
	key := partitionKey{Type: t, Spot: spot, Tick: tick}

	idx.mu.RLock()
	cached, ok := idx.itmCache[key]
	idx.mu.RUnlock()
	if ok {
		idx.recordHit()
		return cached
	}

	strikes := idx.partition(spot, t, tick, false)

	idx.mu.Lock()
	idx.misses++
	idx.itmCache[key] = strikes
	idx.mu.Unlock()
	return strikes
}

func (idx *Index) partition(spot float64, t models.OptionType, tick int, otm bool) []float64 {
	surface, ok := idx.data[tick]
	if !ok {
		return nil
	}
	quotes, ok := surface[t]
	if !ok {
		return nil
	}

	// OTM for a call is above spot; the other three cases mirror it.
	above := otm == (t == models.OptionCE)

	var out []float64
	for strike := range quotes {
		if (above && strike > spot) || (!above && strike < spot) {
			out = append(out, strike)
		}
	}
	sort.Float64s(out)
	return out
}

func (idx *Index) recordHit() {
	idx.mu.Lock()
	idx.hits++
	idx.mu.Unlock()
}

// ATMStrike returns the strike closest to spot at the tick. Ties resolve to
// the lower strike (first match in ascending order).
func (idx *Index) ATMStrike(spot float64, tick int) (float64, bool) {
	surface, ok := idx.data[tick]
	if !ok {
		return 0, false
	}

	seen := make(map[float64]bool)
	var strikes []float64
	for _, quotes := range surface {
		for strike := range quotes {
			if !seen[strike] {
				seen[strike] = true
				strikes = append(strikes, strike)
			}
		}
	}
	if len(strikes) == 0 {
		return 0, false
	}
	sort.Float64s(strikes)

	best := strikes[0]
	bestDist := math.Abs(best - spot)
	for _, strike := range strikes[1:] {
		if dist := math.Abs(strike - spot); dist < bestDist {
			best = strike
			bestDist = dist
		}
	}
	return best, true
}

// StrikesInRange returns strikes within rangePct percent of spot at a tick.
func (idx *Index) StrikesInRange(spot, rangePct float64, tick int) []float64 {
	surface, ok := idx.data[tick]
	if !ok {
		return nil
	}

	lower := spot * (1 - rangePct/100)
	upper := spot * (1 + rangePct/100)

	seen := make(map[float64]bool)
	var out []float64
	for _, quotes := range surface {
		for strike := range quotes {
			if strike >= lower && strike <= upper && !seen[strike] {
				seen[strike] = true
				out = append(out, strike)
			}
		}
	}
	sort.Float64s(out)
	return out
}

// RequiredLeg names a (type, strike) pair that must have a quote.
type RequiredLeg struct {
	Type   models.OptionType
	Strike float64
}

func (l RequiredLeg) String() string {
	return fmt.Sprintf("%s_%g", l.Type, l.Strike)
}

// Validation reports exactly which required legs have no quote at a tick.
type Validation struct {
	Missing []RequiredLeg
}

// OK reports whether all required legs were present.
func (v Validation) OK() bool {
	return len(v.Missing) == 0
}

// Err returns nil when the validation passed, otherwise an error naming
// the missing legs that unwraps to ErrMissingLeg.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	names := make([]string, 0, len(v.Missing))
	for _, leg := range v.Missing {
		names = append(names, leg.String())
	}
	return errors.Wrapf(errors.ErrMissingLeg, "legs %s", strings.Join(names, ","))
}

// ValidateSurface checks the required legs against a single tick's quote
// surface. Position construction runs every selected leg through this
// before committing, so multi-leg creation is all-or-nothing.
func ValidateSurface(surface models.Surface, required []RequiredLeg) Validation {
	var result Validation
	for _, leg := range required {
		if _, ok := surface.Price(leg.Type, leg.Strike); !ok {
			result.Missing = append(result.Missing, leg)
		}
	}
	return result
}

// ValidateCompleteness checks that every required (type, strike) pair has a
// quote at the tick. Used to decide atomically whether a multi-leg position
// can be created at all.
func (idx *Index) ValidateCompleteness(tick int, required []RequiredLeg) Validation {
	surface, ok := idx.data[tick]
	if !ok {
		return Validation{Missing: append([]RequiredLeg(nil), required...)}
	}
	return ValidateSurface(surface, required)
}

// MarketView builds a read-only view of the tick. The returned surface is a
// defensive copy; callers cannot mutate the index through it. Returns nil if
// the tick has no option data.
func (idx *Index) MarketView(tick int, spot float64) *models.MarketView {
	surface, ok := idx.data[tick]
	if !ok {
		return nil
	}

	seen := make(map[float64]bool)
	var strikes []float64
	for _, quotes := range surface {
		for strike := range quotes {
			if !seen[strike] {
				seen[strike] = true
				strikes = append(strikes, strike)
			}
		}
	}
	sort.Float64s(strikes)

	return &models.MarketView{
		Tick:    tick,
		Spot:    spot,
		Options: surface.Copy(),
		Strikes: strikes,
	}
}

// ClearCaches drops all cached derived data. Hit/miss counters are kept;
// clearing invalidates contents, not diagnostics.
func (idx *Index) ClearCaches() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nearCache = make(map[float64][]float64)
	idx.otmCache = make(map[partitionKey][]float64)
	idx.itmCache = make(map[partitionKey][]float64)
}

// Stats holds cache diagnostics.
type Stats struct {
	Hits     uint64
	Misses   uint64
	NearSize int
	OTMSize  int
	ITMSize  int
}

// HitRate returns the fraction of lookups served from cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheStats returns current cache diagnostics.
func (idx *Index) CacheStats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{
		Hits:     idx.hits,
		Misses:   idx.misses,
		NearSize: len(idx.nearCache),
		OTMSize:  len(idx.otmCache),
		ITMSize:  len(idx.itmCache),
	}
}

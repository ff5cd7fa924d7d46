package cadence

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
)

// Tunables of the cadence heuristic. These are fixed when a Layer is created;
// the defaults are what production callers get.
type params struct {
	historySize       int           // Max number of frame samples we remember per layer
	historyTime       time.Duration // A history spanning at least this much time is enough, even if not full
	frequentWindow    int           // Number of most recent samples that decide "frequent"
	maxFrequentPeriod time.Duration // A frequent layer updates at least this often
	rateMargin        float32       // Minimum Hz change before we report a new rate
}

var defaultParams = params{
	historySize:       90,
	historyTime:       time.Second,
	frequentWindow:    3,
	maxFrequentPeriod: 250 * time.Millisecond,
	rateMargin:        1.0,
}

// ActiveThresholdFunc computes the start of the "recently active" window for
// a given current time. The policy lives in the arbitration scheduler, not
// here, so it is injected at construction.
type ActiveThresholdFunc func(now time.Duration) time.Duration

// Layer estimates the refresh rate that one rendering surface actually needs,
// from the timing of its observed updates. The owning aggregator records an
// event on every update, and the arbitration scheduler asks for the layer's
// current Vote whenever it re-evaluates the display mode.
//
// All timestamps are nanoseconds (time.Duration) on a single non-decreasing
// clock; their origin doesn't matter. A presentation timestamp of 0 means
// "unknown".
//
// Not thread-safe. Independent layers may be used from different threads, but
// a single Layer must only be touched by one caller at a time.
type Layer struct {
	log                   logs.Log
	params                params
	highRefreshRatePeriod time.Duration
	defaultVote           VoteType
	activeThreshold       ActiveThresholdFunc

	history      frameHistory
	vote         Vote
	lastReported float32 // Last refresh rate we reported, in Hz. Hysteresis state of estimateRate.
}

// NewLayer creates the estimator for one surface.
// highRefreshRatePeriod is the frame period of the fastest display mode the
// hardware supports; observed deltas are clamped to it so that back-to-back
// presents can't inflate the estimate beyond what the display can show.
func NewLayer(logger logs.Log, highRefreshRatePeriod time.Duration, defaultVote VoteType, activeThreshold ActiveThresholdFunc) *Layer {
	return newLayerWithParams(logger, highRefreshRatePeriod, defaultVote, activeThreshold, defaultParams)
}

func newLayerWithParams(logger logs.Log, highRefreshRatePeriod time.Duration, defaultVote VoteType, activeThreshold ActiveThresholdFunc, p params) *Layer {
	return &Layer{
		log:                   logger,
		params:                p,
		highRefreshRatePeriod: highRefreshRatePeriod,
		defaultVote:           defaultVote,
		activeThreshold:       activeThreshold,
		history:               newFrameHistory(p.historySize),
		vote:                  Vote{Type: defaultVote},
	}
}

// RecordPresent ingests one observed update of the layer.
// lastPresentTime is the presentation timestamp of the frame (0 or negative
// if unknown), now is the current time. This is the only mutator of the
// frame history.
func (l *Layer) RecordPresent(lastPresentTime, now time.Duration) {
	lastPresentTime = max(lastPresentTime, 0)
	l.history.add(frameSample{
		presentTime: lastPresentTime,
		queueTime:   max(lastPresentTime, now),
	})
}

// SetVote pins an explicit vote. While the pinned vote's type is anything
// other than VoteHeuristic, RefreshRate returns it unchanged and the
// heuristic is bypassed.
func (l *Layer) SetVote(t VoteType, rate float32) {
	l.vote = Vote{Type: t, Rate: rate}
}

// ResetVote restores the default vote the layer was created with.
func (l *Layer) ResetVote() {
	l.vote = Vote{Type: l.defaultVote}
}

// HistoryLen returns the number of frame samples currently remembered.
func (l *Layer) HistoryLen() int {
	return l.history.len()
}

// IsRecentlyActive is true if the layer's most recent update falls inside
// the injected active window.
func (l *Layer) IsRecentlyActive(now time.Duration) bool {
	if l.history.len() == 0 {
		return false
	}
	return l.history.newest().queueTime >= l.activeThreshold(now)
}

// IsFrequent is true if the layer has kept updating at least every
// maxFrequentPeriod across the last frequentWindow samples. With too few
// samples to judge we assume frequent, so that a freshly visible layer isn't
// throttled before it has a track record.
func (l *Layer) IsFrequent(now time.Duration) bool {
	if l.history.len() < l.params.frequentWindow {
		return true
	}
	windowStart := l.history.at(l.history.len() - l.params.frequentWindow)
	return windowStart.queueTime >= now-l.params.maxFrequentPeriod
}

// The layer must have published either a full history, or updates spanning
// at least historyTime, before the cadence heuristic is usable.
func (l *Layer) hasEnoughData() bool {
	if l.history.len() == 0 {
		return false
	}
	if l.history.len() < l.params.historySize &&
		l.history.newest().queueTime-l.history.oldest().queueTime < l.params.historyTime {
		return false
	}
	return true
}

// estimateRate computes the layer's cadence in Hz from the average delta
// between consecutive presentation timestamps. ok is false when the history
// can't support an estimate: not enough data, missing presentation
// timestamps, or a bursty (non-uniform) sample spacing that would make the
// average unrepresentative.
func (l *Layer) estimateRate() (rate float32, ok bool) {
	if !l.hasEnoughData() {
		l.log.Debugf("Not enough data to estimate cadence")
		return 0, false
	}

	n := l.history.len()
	totalDelta := time.Duration(0)
	for i := 0; i < n-1; i++ {
		a := l.history.at(i)
		b := l.history.at(i + 1)
		// Without presentation timestamps we can't measure cadence
		if a.presentTime == 0 || b.presentTime == 0 {
			return 0, false
		}
		totalDelta += max(b.presentTime-a.presentTime, l.highRefreshRatePeriod)
	}
	averageDelta := float32(totalDelta) / float32(n-1)

	// Reject the estimate if the deltas are not evenly distributed, so that a
	// burst of frames doesn't masquerade as a steady cadence.
	for i := 0; i < n-1; i++ {
		delta := float32(max(l.history.at(i+1).presentTime-l.history.at(i).presentTime, l.highRefreshRatePeriod))
		if math32.Abs(delta-averageDelta) > 2*averageDelta {
			l.log.Debugf("Cadence estimate rejected: bursty frame spacing")
			return 0, false
		}
	}

	candidate := 1e9 / averageDelta
	if math32.Abs(candidate-l.lastReported) > l.params.rateMargin {
		l.lastReported = candidate
	}
	l.log.Debugf("Estimated cadence %.2f Hz", l.lastReported)
	return l.lastReported, true
}

// RefreshRate resolves the layer's current vote.
// An explicit (non-heuristic) stored vote always wins. Otherwise an
// infrequent layer votes Min, a frequent layer with a usable history votes
// its estimated cadence, and a frequent layer whose history can't support an
// estimate votes Max rather than risk being starved.
func (l *Layer) RefreshRate(now time.Duration) Vote {
	if l.vote.Type != VoteHeuristic {
		return l.vote
	}

	if !l.IsFrequent(now) {
		return Vote{Type: VoteMin}
	}

	if rate, ok := l.estimateRate(); ok {
		return Vote{Type: VoteHeuristic, Rate: rate}
	}

	return Vote{Type: VoteMax}
}

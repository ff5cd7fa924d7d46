package cadence

import "time"

// One observed update of a layer.
// presentTime is the timestamp at which the frame was presented on screen,
// or 0 if the compositor had no presentation timestamp for this update.
// queueTime is max(presentTime, now at ingestion), so it is non-decreasing
// across the history as long as the caller's clock is non-decreasing.
type frameSample struct {
	presentTime time.Duration
	queueTime   time.Duration
}

// Fixed-capacity ring of the most recent frame samples, oldest first.
// When full, adding evicts the oldest sample. Capacity is exact (no
// power-of-2 rounding), because the heuristics reason about "the last N
// samples" with N chosen for its time coverage, not for indexing speed.
// Not thread-safe; the owning Layer's caller must synchronize.
type frameHistory struct {
	samples []frameSample
	head    int // next write position
	size    int // 0..capacity
}

func newFrameHistory(capacity int) frameHistory {
	return frameHistory{
		samples: make([]frameSample, capacity),
	}
}

func (h *frameHistory) add(s frameSample) {
	h.samples[h.head] = s
	h.head = (h.head + 1) % len(h.samples)
	if h.size < len(h.samples) {
		h.size++
	}
}

func (h *frameHistory) len() int {
	return h.size
}

// at returns the i'th sample, where 0 is the oldest and len()-1 the newest.
func (h *frameHistory) at(i int) frameSample {
	return h.samples[(h.head-h.size+i+len(h.samples))%len(h.samples)]
}

func (h *frameHistory) oldest() frameSample {
	return h.at(0)
}

func (h *frameHistory) newest() frameSample {
	return h.at(h.size - 1)
}

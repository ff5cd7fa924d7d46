package cadence

// VoteType is a layer's refresh rate policy, consumed by the refresh rate
// arbitration scheduler. The ordering matters to the arbiter (Min loses to
// everything, Max wins over heuristics), but this package only ever emits
// VoteMin, VoteMax and VoteHeuristic itself.
type VoteType int

const (
	VoteNone                    VoteType = iota // Layer has no opinion
	VoteMin                                     // Lowest refresh rate available
	VoteMax                                     // Highest refresh rate available
	VoteHeuristic                               // Rate estimated from the layer's own frame cadence
	VoteExplicitDefault                         // Rate set explicitly by the layer owner, arbiter may override
	VoteExplicitExactOrMultiple                 // Rate set explicitly, arbiter must honor it or a multiple
)

func (v VoteType) String() string {
	switch v {
	case VoteNone:
		return "NoVote"
	case VoteMin:
		return "Min"
	case VoteMax:
		return "Max"
	case VoteHeuristic:
		return "Heuristic"
	case VoteExplicitDefault:
		return "ExplicitDefault"
	case VoteExplicitExactOrMultiple:
		return "ExplicitExactOrMultiple"
	default:
		return "unknown"
	}
}

// Vote is a layer's recommended refresh rate. Rate is in Hz, and is only
// meaningful for the heuristic and explicit vote types (zero otherwise).
type Vote struct {
	Type VoteType
	Rate float32
}

package taxlots

import "fmt"

// LotSelection defines which lots a sale consumes first.
type LotSelection int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO LotSelection = iota
	// LIFO (Last-In, First-Out) consumes the most recent lots first.
	LIFO
	// HIFO (Highest-In, First-Out) consumes the lots with the highest cost per share first.
	HIFO
	// MinimizeGain consumes the lots that realize the smallest gain for a given price,
	// that is the highest cost per share first.
	MinimizeGain
	// MaximizeGain consumes the lowest cost per share first.
	MaximizeGain
	// SpecificID consumes exactly the lots named by the caller, in the given order.
	SpecificID
	// AverageCost consumes every open lot pro rata and costs them at the average cost per share.
	AverageCost
)

// lotSelections lists every method, in declaration order.
var lotSelections = []LotSelection{FIFO, LIFO, HIFO, MinimizeGain, MaximizeGain, SpecificID, AverageCost}

func (m LotSelection) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HIFO:
		return "hifo"
	case MinimizeGain:
		return "min-gain"
	case MaximizeGain:
		return "max-gain"
	case SpecificID:
		return "specific"
	case AverageCost:
		return "average"
	default:
		return "unknown"
	}
}

// ParseLotSelection parses a string into a LotSelection.
func ParseLotSelection(s string) (LotSelection, error) {
	for _, m := range lotSelections {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown lot selection method: %q", s)
}

// Sequential reports whether lots are consumed one after the other, as opposed to pro rata.
func (m LotSelection) Sequential() bool { return m != AverageCost }

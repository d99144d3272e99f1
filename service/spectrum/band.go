package spectrum

// Band is one of the simulated GPS frequency channels.
type Band uint8

// GPS bands.
const (
	BandL1 Band = iota
	BandL2
	BandL5
)

// Bands lists all simulated bands in generation order.
var Bands = []Band{BandL1, BandL2, BandL5}

// Nominal band frequencies in MHz.
const (
	FrequencyL1 = 1575.42
	FrequencyL2 = 1227.60
	FrequencyL5 = 1176.45
)

// Frequency returns the nominal frequency of the band in MHz.
func (b Band) Frequency() float64 {
	switch b {
	case BandL1:
		return FrequencyL1
	case BandL2:
		return FrequencyL2
	case BandL5:
		return FrequencyL5
	default:
		return 0
	}
}

func (b Band) String() string {
	switch b {
	case BandL1:
		return "L1"
	case BandL2:
		return "L2"
	case BandL5:
		return "L5"
	default:
		return "unknown"
	}
}

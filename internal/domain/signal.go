package domain

// Raw signal window mapped onto 0-100.
const (
	SignalFloor   = -100
	SignalCeiling = -50
)

// SignalQuality maps a raw signal level onto 0-100. Levels at or below
// SignalFloor give 0, at or above SignalCeiling give 100, and the window is
// rescaled linearly in between.
func SignalQuality(raw int) int {
	if raw <= SignalFloor {
		return 0
	}
	if raw >= SignalCeiling {
		return 100
	}
	return (raw - SignalFloor) * 100 / (SignalCeiling - SignalFloor)
}

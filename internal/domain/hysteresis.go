package domain

// FailThreshold is the number of consecutive raw failures before a target
// is shown as DOWN and its owner is alerted.
const FailThreshold = 3

// Transition is the result of feeding one raw probe outcome through the
// failure-hysteresis rule.
type Transition struct {
	FailCount int
	Status    Status
	Alert     bool
}

// Evaluate applies the hysteresis rule to a new raw outcome given the
// previous consecutive-failure count.
//
// An UP outcome resets the counter. A DOWN outcome increments it, but the
// displayed status stays UP until the threshold is reached, so single
// network blips never surface as outages. Alert is true exactly when the
// counter hits the threshold, so one alert fires per down-episode.
func Evaluate(prevFails int, up bool) Transition {
	if up {
		return Transition{FailCount: 0, Status: StatusUp}
	}
	n := prevFails + 1
	tr := Transition{FailCount: n, Status: StatusUp}
	if n >= FailThreshold {
		tr.Status = StatusDown
	}
	tr.Alert = n == FailThreshold
	return tr
}

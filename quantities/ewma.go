package quantities

// EWMA tracks an exponentially weighted moving average of a TimeSpan series:
// new = alpha*sample + (1-alpha)*old. The first sample seeds the average
// directly rather than being blended against a zero starting value.
type EWMA struct {
	alpha       Float
	value       TimeSpan
	initialized bool
}

// NewEWMA returns an EWMA with the given smoothing factor in (0, 1].
func NewEWMA(alpha Float) *EWMA {
	if alpha <= 0 || alpha > 1 {
		panic("quantities: EWMA alpha must be in (0, 1]")
	}
	return &EWMA{alpha: alpha}
}

// Update folds sample into the average and returns the new value.
func (e *EWMA) Update(sample TimeSpan) TimeSpan {
	if !e.initialized {
		e.value = sample
		e.initialized = true
		return e.value
	}
	e.value = sample.Scale(e.alpha).Add(e.value.Scale(1 - e.alpha))
	return e.value
}

// Value returns the current average without updating it. Zero before the
// first Update.
func (e *EWMA) Value() TimeSpan {
	return e.value
}

// Reset clears the average back to its pre-Update state, keeping alpha.
func (e *EWMA) Reset() {
	e.value = TimeSpan{}
	e.initialized = false
}

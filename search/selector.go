package search

// Selector accepts candidates, nearest first, until the strategy's desired
// count is reached, skipping any that sit closer than the minimum distance to
// one already accepted.
type Selector struct {
	strategy Strategy
	accepted []Candidate
}

func NewSelector(s Strategy) *Selector {
	return &Selector{strategy: s, accepted: make([]Candidate, 0, max(0, min(s.DesiredSampleCount, 64)))}
}

// Offer reports whether c was accepted.
func (sel *Selector) Offer(c Candidate) bool {
	if sel.Full() {
		return false
	}
	if d := sel.strategy.MinDistanceBetweenSamples; d > 0 {
		for _, a := range sel.accepted {
			if a.Location.Distance(c.Location) < d {
				return false
			}
		}
	}
	sel.accepted = append(sel.accepted, c)
	return true
}

// Full reports whether no more candidates will be accepted.
func (sel *Selector) Full() bool {
	return len(sel.accepted) >= sel.strategy.DesiredSampleCount
}

// Accepted returns the candidates accepted so far.
func (sel *Selector) Accepted() []Candidate {
	return sel.accepted
}

// Sufficient reports whether enough candidates were accepted to satisfy the
// strategy's minimum.
func (sel *Selector) Sufficient() bool {
	return len(sel.accepted) >= sel.strategy.MinRequiredSampleCount
}

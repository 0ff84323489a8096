package tracker

// noPrediction marks an idle search state.
const noPrediction = -1

// searchState decides which registered images are tried for a frame.
//
// While a page is predicted only that page is tried; each miss spends one
// attempt and the frame ends. When the attempts run out the prediction is
// dropped and the next frame scans the whole registry in order.
type searchState struct {
	predicted int
	remaining int
	attempts  int
}

func newSearchState(attempts int) searchState {
	return searchState{predicted: noPrediction, attempts: attempts}
}

func (s *searchState) reset() {
	s.predicted = noPrediction
	s.remaining = 0
}

// predicting reports whether a page is currently predicted.
func (s *searchState) predicting() bool { return s.predicted != noPrediction }

// step runs the search for one frame over n registered images. try is called
// for each candidate index and reports whether it was accepted. step returns
// the accepted index or noPrediction.
func (s *searchState) step(n int, try func(index int) bool) int {
	if s.predicting() {
		if try(s.predicted) {
			s.remaining = s.attempts
			return s.predicted
		}
		s.remaining--
		if s.remaining <= 0 {
			s.reset()
		}
		return noPrediction
	}

	for i := 0; i < n; i++ {
		if i == s.predicted {
			continue
		}
		if try(i) {
			s.predicted = i
			s.remaining = s.attempts
			return i
		}
	}
	return noPrediction
}

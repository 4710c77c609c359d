package result

import "log/slog"

// Score summarizes a run's outcome counts and the resulting mutation score.
type Score struct {
	Killed, Alive, Timeout, Error, Skipped int
	Percent                                float64
}

// Scorer accumulates outcome counts and computes the mutation score as a
// percentage: killed / (killed+alive+timeout+error) * 100, Skipped excluded
// from both numerator and denominator. When the denominator is zero the
// score is 100 if any candidate at all was recorded (every candidate was
// Skipped) and 0 if none were, with a logged warning either way — unlike
// the example pack's own scorer, which always returns `100.0` on an empty
// input regardless of whether anything ran, a divergence this package does
// not carry forward.
type Scorer struct {
	counts map[Outcome]int
}

func NewScorer() *Scorer {
	return &Scorer{counts: map[Outcome]int{}}
}

func (s *Scorer) Add(o Outcome) {
	s.counts[o]++
}

func (s *Scorer) AddEntry(e Entry) {
	s.Add(e.Outcome)
}

func (s *Scorer) Score() Score {
	sc := Score{
		Killed:  s.counts[Killed],
		Alive:   s.counts[Alive],
		Timeout: s.counts[Timeout],
		Error:   s.counts[ErrorOutcome],
		Skipped: s.counts[Skipped],
	}
	total := sc.Killed + sc.Alive + sc.Timeout + sc.Error + sc.Skipped
	denom := sc.Killed + sc.Alive + sc.Timeout + sc.Error
	if denom == 0 {
		if total > 0 {
			slog.Warn("mutation score denominator is zero, every candidate was skipped", "candidates", total)
			sc.Percent = 100.0
		} else {
			slog.Warn("mutation score computed with no candidates")
			sc.Percent = 0.0
		}
		return sc
	}
	sc.Percent = float64(sc.Killed) / float64(denom) * 100.0
	return sc
}

// ScoreSpill replays every entry of a Spill and returns its Score.
func ScoreSpill(sp *Spill) (Score, error) {
	s := NewScorer()
	err := sp.Range(func(_ uint64, e Entry) error {
		s.AddEntry(e)
		return nil
	})
	if err != nil {
		return Score{}, err
	}
	return s.Score(), nil
}

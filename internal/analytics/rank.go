package analytics

// PercentileRank places v on a 0..100 scale against a reference distribution
// using the mean-of-ranks convention: values strictly below count fully,
// values equal count half. An empty reference yields 50 so a single flat
// metric still renders mid-scale.
func PercentileRank(reference []float64, v float64) float64 {
	n := len(reference)
	if n == 0 {
		return 50
	}
	var less, equal int
	for _, r := range reference {
		switch {
		case r < v:
			less++
		case r == v:
			equal++
		}
	}
	rank := 100 * (float64(less) + 0.5*float64(equal)) / float64(n)
	if rank < 0 {
		return 0
	}
	if rank > 100 {
		return 100
	}
	return rank
}

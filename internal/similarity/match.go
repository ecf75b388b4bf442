package similarity

// MinMatchScore is the combined score a search candidate needs to be accepted.
const MinMatchScore = 0.5

// Candidate is a provider search hit reduced to the fields used for matching.
type Candidate struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Year   int
}

// Match is a candidate together with its combined score.
type Match struct {
	Candidate Candidate
	Score     float64
}

// BestMatch returns the highest scoring candidate. Ties keep the earlier
// candidate, so provider ranking decides between equal scores. It returns
// false when no candidate reaches min.
func BestMatch(cands []Candidate, artist, title string, min float64) (Match, bool) {
	var best Match
	found := false
	for _, c := range cands {
		score := Score(c, artist, title)
		if score < min {
			continue
		}
		if !found || score > best.Score {
			best = Match{Candidate: c, Score: score}
			found = true
		}
	}
	return best, found
}

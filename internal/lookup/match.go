package lookup

import (
	"cmp"
	"regexp"
	"slices"

	"github.com/hbollon/go-edlib"

	"github.com/vmunix/imdbeps/internal/imdb"
)

var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// Confidence grades a match score.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // Score < 0.70
	ConfidenceLow                      // Score >= 0.70
	ConfidenceMedium                   // Score >= 0.85
	ConfidenceHigh                     // Score >= 0.95
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

func confidence(score float64) Confidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Match is one series whose title resembles the query.
type Match struct {
	SeriesID string
	Title    string
	// Year is the earliest episode start year, 0 when none is known.
	Year       int
	Episodes   int
	Score      float64
	Confidence Confidence
}

// Series ranks the distinct series in records by title similarity to query
// and returns those with at least low confidence, best first. Ties keep
// seriesID order. A year in the query ("The Office (2005)") favors the
// series whose episodes start that year.
func Series(query string, records []imdb.EpisodeRecord) []Match {
	pq := ParseQuery(query)
	q := CleanTitle(pq.Title)
	qNums := numberRegex.FindAllString(q, -1)

	index := map[string]int{}
	var matches []Match
	for i := range records {
		r := &records[i]
		j, ok := index[r.SeriesID]
		if !ok {
			j = len(matches)
			index[r.SeriesID] = j
			c := CleanTitle(r.SeriesTitle)
			score := float64(edlib.JaroWinklerSimilarity(q, c))
			matches = append(matches, Match{
				SeriesID: r.SeriesID,
				Title:    r.SeriesTitle,
				Score:    adjustScoreForNumbers(score, qNums, numberRegex.FindAllString(c, -1)),
			})
		}
		m := &matches[j]
		m.Episodes++
		if r.StartYear != nil && (m.Year == 0 || int(*r.StartYear) < m.Year) {
			m.Year = int(*r.StartYear)
		}
	}

	for i := range matches {
		m := &matches[i]
		m.Score = adjustScoreForYear(m.Score, pq.Year, m.Year)
		m.Confidence = confidence(m.Score)
	}

	matches = slices.DeleteFunc(matches, func(m Match) bool { return m.Confidence == ConfidenceNone })
	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.SeriesID, b.SeriesID)
	})
	return matches
}

// Episodes returns the records of one series in dataset order.
func Episodes(records []imdb.EpisodeRecord, seriesID string) []imdb.EpisodeRecord {
	var out []imdb.EpisodeRecord
	for _, r := range records {
		if r.SeriesID == seriesID {
			out = append(out, r)
		}
	}
	return out
}

// adjustScoreForYear nudges the score up when the query year is within a
// year of the series start and down otherwise.
func adjustScoreForYear(score float64, queryYear, seriesYear int) float64 {
	switch {
	case queryYear == 0:
		return score
	case seriesYear == 0:
		return score * 0.95
	case abs(queryYear-seriesYear) <= 1:
		return min(score+0.05, 1.0)
	default:
		return score * 0.90
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// adjustScoreForNumbers rewards a query whose numbers appear in the title
// ("24" against "24: Legacy") and penalizes one whose numbers do not.
func adjustScoreForNumbers(score float64, queryNums, titleNums []string) float64 {
	if len(queryNums) == 0 {
		return score
	}
	if len(titleNums) == 0 {
		return score * 0.85
	}
	for _, n := range queryNums {
		if slices.Contains(titleNums, n) {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}

package imdb

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// ScanTitles calls fn for every title whose type is in types.
func ScanTitles(r *Reader, types []string, fn func(Title) error) error {
	cols, err := r.Columns(ColTconst, ColTitleType, ColPrimaryTitle, ColStartYear, ColEndYear)
	if err != nil {
		return err
	}
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !slices.Contains(types, row[cols[1]]) {
			continue
		}
		t := Title{
			ID:           row[cols[0]],
			Type:         row[cols[1]],
			PrimaryTitle: r.String(row[cols[2]]),
		}
		if t.StartYear, err = r.Int32(ColStartYear, row[cols[3]]); err != nil {
			return err
		}
		if t.EndYear, err = r.Int32(ColEndYear, row[cols[4]]); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

// ScanRatings calls fn for every rating.
func ScanRatings(r *Reader, fn func(Rating) error) error {
	cols, err := r.Columns(ColTconst, ColAverageRating, ColNumVotes)
	if err != nil {
		return err
	}
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rt := Rating{TitleID: row[cols[0]]}
		if rt.AverageRating, err = r.Float64(ColAverageRating, row[cols[1]]); err != nil {
			return err
		}
		if rt.NumVotes, err = r.Int32(ColNumVotes, row[cols[2]]); err != nil {
			return err
		}
		if err := fn(rt); err != nil {
			return err
		}
	}
}

// ScanEpisodes calls fn for every episode that has both a season and an
// episode number. Episodes missing either are skipped.
func ScanEpisodes(r *Reader, fn func(Episode) error) error {
	cols, err := r.Columns(ColTconst, ColParentTconst, ColSeasonNumber, ColEpisodeNumber)
	if err != nil {
		return err
	}
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if row[cols[2]] == NullValue || row[cols[3]] == NullValue {
			continue
		}
		e := Episode{ID: row[cols[0]], ParentID: row[cols[1]]}
		if e.SeasonNumber, err = r.Int32(ColSeasonNumber, row[cols[2]]); err != nil {
			return err
		}
		if e.EpisodeNumber, err = r.Int32(ColEpisodeNumber, row[cols[3]]); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// Titles is an arena of titles indexed by id.
type Titles struct {
	rows  []Title
	index map[string]int
}

// Lookup returns the title with the given id.
func (t *Titles) Lookup(id string) (*Title, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.rows[i], true
}

// Len returns the number of titles.
func (t *Titles) Len() int { return len(t.rows) }

// LoadTitles reads every title of the given types into memory.
func LoadTitles(r *Reader, types []string) (*Titles, error) {
	t := &Titles{index: make(map[string]int)}
	err := ScanTitles(r, types, func(title Title) error {
		if _, dup := t.index[title.ID]; dup {
			return r.errorf(ColTconst, "%w: %s", ErrDuplicateID, title.ID)
		}
		t.index[title.ID] = len(t.rows)
		t.rows = append(t.rows, title)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	return t, nil
}

// LoadRatings reads every rating into a map keyed by title id.
func LoadRatings(r *Reader) (map[string]Rating, error) {
	ratings := make(map[string]Rating)
	err := ScanRatings(r, func(rt Rating) error {
		if _, dup := ratings[rt.TitleID]; dup {
			return r.errorf(ColTconst, "%w: %s", ErrDuplicateID, rt.TitleID)
		}
		ratings[rt.TitleID] = rt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	return ratings, nil
}

// LoadEpisodes reads every numbered episode into memory.
func LoadEpisodes(r *Reader) ([]Episode, error) {
	var episodes []Episode
	err := ScanEpisodes(r, func(e Episode) error {
		episodes = append(episodes, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	return episodes, nil
}

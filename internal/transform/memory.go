package transform

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// Memory runs the plan in Go. Titles are held in an arena indexed by id so
// the series title lookup is a map access per episode.
type Memory struct {
	opts Options
}

// Name implements Engine.
func (m *Memory) Name() string { return EngineMemory }

// Transform implements Engine.
func (m *Memory) Transform(ctx context.Context, src imdb.Sources) ([]imdb.EpisodeRecord, error) {
	log := m.opts.Logger.With("engine", EngineMemory)
	start := time.Now()

	var titles *imdb.Titles
	err := withReader(src.Basics, func(r *imdb.Reader) (err error) {
		titles, err = imdb.LoadTitles(r, m.opts.TitleTypes)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Debug("titles loaded", "rows", titles.Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ratings map[string]imdb.Rating
	err = withReader(src.Ratings, func(r *imdb.Reader) (err error) {
		ratings, err = imdb.LoadRatings(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Debug("ratings loaded", "rows", len(ratings))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var episodes []imdb.Episode
	err = withReader(src.Episode, func(r *imdb.Reader) (err error) {
		episodes, err = imdb.LoadEpisodes(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Debug("episodes loaded", "rows", len(episodes))

	records := Join(titles, ratings, episodes)
	log.Info("transform complete", "records", len(records), "duration", time.Since(start).Round(time.Millisecond))
	return records, nil
}

// Join builds sorted episode records from loaded relations. Episodes are
// expected to be numbered already; titles restricted to the wanted types.
func Join(titles *imdb.Titles, ratings map[string]imdb.Rating, episodes []imdb.Episode) []imdb.EpisodeRecord {
	records := make([]imdb.EpisodeRecord, 0, len(episodes))
	for _, e := range episodes {
		if e.SeasonNumber == nil || e.EpisodeNumber == nil {
			continue
		}
		own, ok := titles.Lookup(e.ID)
		if !ok {
			continue
		}
		series, ok := titles.Lookup(e.ParentID)
		if !ok || series.PrimaryTitle == nil {
			continue
		}
		rec := imdb.EpisodeRecord{
			EpisodeTitle:  own.PrimaryTitle,
			StartYear:     own.StartYear,
			EndYear:       own.EndYear,
			EpisodeID:     e.ID,
			SeriesID:      e.ParentID,
			SeasonNumber:  *e.SeasonNumber,
			EpisodeNumber: *e.EpisodeNumber,
			SeriesTitle:   *series.PrimaryTitle,
		}
		if rt, ok := ratings[e.ID]; ok {
			rec.AverageRating = rt.AverageRating
			rec.NumVotes = rt.NumVotes
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return imdb.Less(&records[i], &records[j]) })
	return records
}

func withReader(path string, fn func(*imdb.Reader) error) error {
	r, err := imdb.Open(path)
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		_ = r.Close()
		return err
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

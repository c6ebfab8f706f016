// Package imdb models the public IMDb title datasets and the denormalized
// episode record built from them.
package imdb

import "path/filepath"

// Dataset identifiers as they appear in the published file names.
const (
	DatasetBasics  = "basics"
	DatasetRatings = "ratings"
	DatasetEpisode = "episode"
)

// Datasets lists every dataset the episode record is built from.
var Datasets = []string{DatasetBasics, DatasetRatings, DatasetEpisode}

// Title types kept when loading title.basics.
const (
	TypeEpisode    = "tvEpisode"
	TypeSeries     = "tvSeries"
	TypeMiniSeries = "tvMiniSeries"
)

// DefaultTitleTypes are the title types an episode or its parent series may have.
var DefaultTitleTypes = []string{TypeEpisode, TypeSeries, TypeMiniSeries}

// FileName returns the published file name of a dataset, e.g. title.basics.tsv.gz.
func FileName(dataset string) string {
	return "title." + dataset + ".tsv.gz"
}

// Column names used from the source files.
const (
	ColTconst        = "tconst"
	ColTitleType     = "titleType"
	ColPrimaryTitle  = "primaryTitle"
	ColStartYear     = "startYear"
	ColEndYear       = "endYear"
	ColAverageRating = "averageRating"
	ColNumVotes      = "numVotes"
	ColParentTconst  = "parentTconst"
	ColSeasonNumber  = "seasonNumber"
	ColEpisodeNumber = "episodeNumber"
)

// Title is one row of title.basics.
type Title struct {
	ID           string
	Type         string
	PrimaryTitle *string
	StartYear    *int32
	EndYear      *int32
}

// Rating is one row of title.ratings.
type Rating struct {
	TitleID       string
	AverageRating *float64
	NumVotes      *int32
}

// Episode is one row of title.episode.
type Episode struct {
	ID            string
	ParentID      string
	SeasonNumber  *int32
	EpisodeNumber *int32
}

// EpisodeRecord is a TV episode flattened with its own title, its rating and
// the title of the series it belongs to.
type EpisodeRecord struct {
	EpisodeTitle  *string
	StartYear     *int32
	EndYear       *int32
	EpisodeID     string
	SeriesID      string
	SeasonNumber  int32
	EpisodeNumber int32
	AverageRating *float64
	NumVotes      *int32
	SeriesTitle   string
}

// Less orders records by series id, then season, episode and episode id.
func Less(a, b *EpisodeRecord) bool {
	if a.SeriesID != b.SeriesID {
		return a.SeriesID < b.SeriesID
	}
	if a.SeasonNumber != b.SeasonNumber {
		return a.SeasonNumber < b.SeasonNumber
	}
	if a.EpisodeNumber != b.EpisodeNumber {
		return a.EpisodeNumber < b.EpisodeNumber
	}
	return a.EpisodeID < b.EpisodeID
}

// Sources holds the local paths of the three source files.
type Sources struct {
	Basics  string
	Ratings string
	Episode string
}

// Path returns the path of the named dataset, or "" for an unknown name.
func (s Sources) Path(dataset string) string {
	switch dataset {
	case DatasetBasics:
		return s.Basics
	case DatasetRatings:
		return s.Ratings
	case DatasetEpisode:
		return s.Episode
	}
	return ""
}

// SourcesIn returns the conventional source file paths inside dir.
func SourcesIn(dir string) Sources {
	return Sources{
		Basics:  filepath.Join(dir, FileName(DatasetBasics)),
		Ratings: filepath.Join(dir, FileName(DatasetRatings)),
		Episode: filepath.Join(dir, FileName(DatasetEpisode)),
	}
}

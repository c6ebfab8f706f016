// Package dataset stores episode records as a Parquet dataset and reads them
// back.
package dataset

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// Column names of the episode dataset, in file order.
const (
	ColEpisodeTitle  = "episodeTitle"
	ColStartYear     = "startYear"
	ColEndYear       = "endYear"
	ColEpisodeID     = "episodeID"
	ColSeriesID      = "seriesID"
	ColSeasonNumber  = "seasonNumber"
	ColEpisodeNumber = "episodeNumber"
	ColAverageRating = "averageRating"
	ColNumVotes      = "numVotes"
	ColSeriesTitle   = "seriesTitle"
)

// Schema is the arrow schema of an episode record.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: ColEpisodeTitle, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColStartYear, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: ColEndYear, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: ColEpisodeID, Type: arrow.BinaryTypes.String},
	{Name: ColSeriesID, Type: arrow.BinaryTypes.String},
	{Name: ColSeasonNumber, Type: arrow.PrimitiveTypes.Int32},
	{Name: ColEpisodeNumber, Type: arrow.PrimitiveTypes.Int32},
	{Name: ColAverageRating, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: ColNumVotes, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: ColSeriesTitle, Type: arrow.BinaryTypes.String},
}, nil)

// Columns returns the column names of Schema.
func Columns() []string {
	names := make([]string, Schema.NumFields())
	for i, f := range Schema.Fields() {
		names[i] = f.Name
	}
	return names
}

// NewRecord converts episode records to a single arrow record batch. The
// caller must release it.
func NewRecord(mem memory.Allocator, records []imdb.EpisodeRecord) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	episodeTitle := b.Field(0).(*array.StringBuilder)
	startYear := b.Field(1).(*array.Int32Builder)
	endYear := b.Field(2).(*array.Int32Builder)
	episodeID := b.Field(3).(*array.StringBuilder)
	seriesID := b.Field(4).(*array.StringBuilder)
	season := b.Field(5).(*array.Int32Builder)
	episode := b.Field(6).(*array.Int32Builder)
	rating := b.Field(7).(*array.Float64Builder)
	votes := b.Field(8).(*array.Int32Builder)
	seriesTitle := b.Field(9).(*array.StringBuilder)

	for _, fb := range b.Fields() {
		fb.Reserve(len(records))
	}
	for i := range records {
		r := &records[i]
		appendString(episodeTitle, r.EpisodeTitle)
		appendInt32(startYear, r.StartYear)
		appendInt32(endYear, r.EndYear)
		episodeID.Append(r.EpisodeID)
		seriesID.Append(r.SeriesID)
		season.Append(r.SeasonNumber)
		episode.Append(r.EpisodeNumber)
		if r.AverageRating == nil {
			rating.AppendNull()
		} else {
			rating.Append(*r.AverageRating)
		}
		appendInt32(votes, r.NumVotes)
		seriesTitle.Append(r.SeriesTitle)
	}
	return b.NewRecord()
}

func appendString(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendInt32(b *array.Int32Builder, v *int32) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// FromRecord converts an arrow record batch with the episode schema back to
// episode records, appending to dst.
func FromRecord(dst []imdb.EpisodeRecord, rec arrow.Record) ([]imdb.EpisodeRecord, error) {
	if err := checkSchema(rec.Schema()); err != nil {
		return dst, err
	}
	episodeTitle := rec.Column(0).(*array.String)
	startYear := rec.Column(1).(*array.Int32)
	endYear := rec.Column(2).(*array.Int32)
	episodeID := rec.Column(3).(*array.String)
	seriesID := rec.Column(4).(*array.String)
	season := rec.Column(5).(*array.Int32)
	episode := rec.Column(6).(*array.Int32)
	rating := rec.Column(7).(*array.Float64)
	votes := rec.Column(8).(*array.Int32)
	seriesTitle := rec.Column(9).(*array.String)

	for i := 0; i < int(rec.NumRows()); i++ {
		r := imdb.EpisodeRecord{
			EpisodeTitle:  stringAt(episodeTitle, i),
			StartYear:     int32At(startYear, i),
			EndYear:       int32At(endYear, i),
			EpisodeID:     strings.Clone(episodeID.Value(i)),
			SeriesID:      strings.Clone(seriesID.Value(i)),
			SeasonNumber:  season.Value(i),
			EpisodeNumber: episode.Value(i),
			NumVotes:      int32At(votes, i),
			SeriesTitle:   strings.Clone(seriesTitle.Value(i)),
		}
		if rating.IsValid(i) {
			v := rating.Value(i)
			r.AverageRating = &v
		}
		dst = append(dst, r)
	}
	return dst, nil
}

// checkSchema compares names, types and nullability; field metadata added
// by readers is ignored.
func checkSchema(s *arrow.Schema) error {
	if s.NumFields() != Schema.NumFields() {
		return fmt.Errorf("unexpected schema: got %d columns, want %d", s.NumFields(), Schema.NumFields())
	}
	for i, want := range Schema.Fields() {
		got := s.Field(i)
		if got.Name != want.Name || got.Nullable != want.Nullable || !arrow.TypeEqual(got.Type, want.Type) {
			return fmt.Errorf("unexpected schema: column %d is %s, want %s", i, got, want)
		}
	}
	return nil
}

func stringAt(a *array.String, i int) *string {
	if a.IsNull(i) {
		return nil
	}
	v := strings.Clone(a.Value(i))
	return &v
}

func int32At(a *array.Int32, i int) *int32 {
	if a.IsNull(i) {
		return nil
	}
	v := a.Value(i)
	return &v
}

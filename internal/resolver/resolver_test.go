package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/tvtidy/internal/assistant"
	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/tmdb"
)

type fakeSearch struct {
	calls   int
	results map[string][]tmdb.TVShow
}

func (f *fakeSearch) SearchTV(_ context.Context, query string, _ int) ([]tmdb.TVShow, error) {
	f.calls++
	return f.results[query], nil
}

type fakeClean struct {
	guess *assistant.Guess
	calls int
}

func (f *fakeClean) CleanTitle(_ context.Context, _ string, _ []string) (*assistant.Guess, error) {
	f.calls++
	return f.guess, nil
}

func TestResolve_AlreadyCanonical(t *testing.T) {
	s := &fakeSearch{}
	r := New(s, nil, nil, 0.72)

	id, err := r.Resolve(context.Background(), "Some Show (2019)", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceAlreadyCanonical, id.Source)
	assert.Equal(t, "Some Show", id.Title)
	assert.Equal(t, 2019, id.Year)
	assert.Equal(t, 0, s.calls, "canonical names must not hit the API")
}

func TestResolve_MetadataLookup(t *testing.T) {
	s := &fakeSearch{results: map[string][]tmdb.TVShow{
		"龙岭迷窟": {
			{ID: 1, Name: "鬼吹灯之龙岭迷窟", FirstAirDate: "2020-04-01", Popularity: 50},
			{ID: 2, Name: "某别的剧", FirstAirDate: "2011-01-01", Popularity: 99},
		},
	}}
	r := New(s, nil, nil, 0.72)

	id, err := r.Resolve(context.Background(), "龙岭迷窟 2020 4K", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceMetadataLookup, id.Source)
	assert.Equal(t, "鬼吹灯之龙岭迷窟", id.Title)
	assert.Equal(t, 2020, id.Year)
}

func TestResolve_BelowThresholdUnresolved(t *testing.T) {
	s := &fakeSearch{results: map[string][]tmdb.TVShow{}}
	r := New(s, nil, nil, 0.72)

	id, err := r.Resolve(context.Background(), "乱七八糟目录名", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceUnresolved, id.Source)
	assert.False(t, id.Resolved())
}

func TestResolve_AssistantFallback(t *testing.T) {
	s := &fakeSearch{results: map[string][]tmdb.TVShow{
		"暗河传": {{ID: 7, Name: "暗河传", FirstAirDate: "2025-01-01"}},
	}}
	c := &fakeClean{guess: &assistant.Guess{Title: "暗河传", Year: 2025}}
	r := New(s, c, nil, 0.72)

	id, err := r.Resolve(context.Background(), "AHC合集[4K][防走丢]", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, model.SourceAssistantLookup, id.Source)
	assert.Equal(t, "暗河传", id.Title)
}

func TestResolve_MemoizedPerRun(t *testing.T) {
	s := &fakeSearch{results: map[string][]tmdb.TVShow{
		"Silo": {{ID: 3, Name: "Silo", FirstAirDate: "2023-05-05"}},
	}}
	r := New(s, nil, nil, 0.72)

	ctx := context.Background()
	_, err := r.Resolve(ctx, "Silo 1080p", nil)
	require.NoError(t, err)
	first := s.calls
	_, err = r.Resolve(ctx, "Silo 1080p", nil)
	require.NoError(t, err)
	assert.Equal(t, first, s.calls, "second resolve must come from memo")
}

func TestResolve_SingleSearchPerRoot(t *testing.T) {
	s := &fakeSearch{results: map[string][]tmdb.TVShow{
		"龙岭迷窟": {{ID: 1, Name: "鬼吹灯之龙岭迷窟", FirstAirDate: "2020-04-01"}},
	}}
	r := New(s, nil, nil, 0.72)

	// 带年份的目录名也只允许一次搜索调用
	_, err := r.Resolve(context.Background(), "龙岭迷窟 2020 4K", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.calls)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Some Show", "some show"))
	assert.InDelta(t, 0.9, Similarity("龙岭迷窟", "鬼吹灯之龙岭迷窟"), 0.001)
	assert.Less(t, Similarity("完全无关", "Breaking Bad"), 0.3)
}

package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/planner"
	"github.com/pokerjest/tvtidy/internal/resolver"
	"github.com/pokerjest/tvtidy/internal/tmdb"
)

// fakeRemote 固定目录树，记录所有写操作
type fakeRemote struct {
	dirs  map[string][]model.Entry
	calls []string
}

func (f *fakeRemote) List(_ context.Context, dir string) ([]model.Entry, error) {
	return f.dirs[dir], nil
}
func (f *fakeRemote) Search(_ context.Context, parent, keyword string) ([]model.Entry, error) {
	return nil, nil
}
func (f *fakeRemote) Rename(_ context.Context, path, newName string) error {
	f.calls = append(f.calls, fmt.Sprintf("rename %s -> %s", path, newName))
	return nil
}
func (f *fakeRemote) Move(_ context.Context, srcDir, dstDir string, names []string) error {
	f.calls = append(f.calls, fmt.Sprintf("move %s/%s -> %s", srcDir, names[0], dstDir))
	return nil
}
func (f *fakeRemote) Remove(_ context.Context, dir string, names []string) error {
	f.calls = append(f.calls, fmt.Sprintf("remove %s/%s", dir, names[0]))
	return nil
}
func (f *fakeRemote) Mkdir(_ context.Context, path string) error {
	f.calls = append(f.calls, fmt.Sprintf("mkdir %s", path))
	return nil
}

type noSearch struct{}

func (noSearch) SearchTV(context.Context, string, int) ([]tmdb.TVShow, error) {
	return nil, nil
}

func flatShow() *fakeRemote {
	root := "/tv/Flat Show (2022)"
	return &fakeRemote{dirs: map[string][]model.Entry{
		root: {
			{Path: root + "/第3集.mp4", Name: "第3集.mp4"},
			{Path: root + "/最新地址.url", Name: "最新地址.url"},
		},
	}}
}

func newOrganizer(t *testing.T, remote Remote) *Organizer {
	t.Helper()
	return &Organizer{
		Alist:    remote,
		Resolver: resolver.New(noSearch{}, nil, nil, 0.72),
		DataDir:  t.TempDir(),
	}
}

func TestOrganizer_ApplyAndUndo(t *testing.T) {
	remote := flatShow()
	o := newOrganizer(t, remote)

	reports, err := o.Apply(context.Background(), []string{"/tv/Flat Show (2022)"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 0, reports[0].Failed)
	assert.False(t, reports[0].DryRun)

	assert.Equal(t, []string{
		"remove /tv/Flat Show (2022)/最新地址.url",
		"rename /tv/Flat Show (2022)/第3集.mp4 -> Flat Show - S01E03.mp4",
		"mkdir /tv/Flat Show (2022)/S01",
		"move /tv/Flat Show (2022)/Flat Show - S01E03.mp4 -> /tv/Flat Show (2022)/S01",
	}, remote.calls)

	// undo 逆序回放，delete 跳过
	remote.calls = nil
	undo, err := o.Undo(context.Background(), reports[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, undo.Total)
	assert.Equal(t, 2, undo.Reverted)
	assert.Equal(t, 1, undo.SkippedNA)
	assert.Equal(t, []string{
		"move /tv/Flat Show (2022)/S01/Flat Show - S01E03.mp4 -> /tv/Flat Show (2022)",
		"rename /tv/Flat Show (2022)/Flat Show - S01E03.mp4 -> 第3集.mp4",
	}, remote.calls)
}

func TestOrganizer_DryRunTouchesNothing(t *testing.T) {
	remote := flatShow()
	o := newOrganizer(t, remote)

	reports, err := o.DryRun(context.Background(), []string{"/tv/Flat Show (2022)"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].DryRun)
	assert.Empty(t, remote.calls)
}

func TestOrganizer_ConfirmDeclinedSkipsRoot(t *testing.T) {
	remote := flatShow()
	o := newOrganizer(t, remote)
	asked := 0
	o.Confirm = func(plan model.Plan) bool {
		asked++
		assert.Greater(t, plan.Mutations(), 0)
		return false
	}

	reports, err := o.Apply(context.Background(), []string{"/tv/Flat Show (2022)"})
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
	assert.Empty(t, reports, "declined root must not execute")
	assert.Empty(t, remote.calls)
}

func TestOrganizer_UnresolvedRootLeftAlone(t *testing.T) {
	root := "/tv/完全认不出的目录"
	remote := &fakeRemote{dirs: map[string][]model.Entry{
		root: {{Path: root + "/第1集.mp4", Name: "第1集.mp4"}},
	}}
	o := newOrganizer(t, remote)

	reports, err := o.Apply(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, remote.calls)
}

func TestSampleNames_Deterministic(t *testing.T) {
	snap := &planner.Snapshot{
		Root: "/tv/X",
		Entries: map[string][]model.Entry{
			"/tv/X/S02": {{Name: "b.mkv"}},
			"/tv/X":     {{Name: "a.mkv"}},
			"/tv/X/S01": {{Name: "c.mkv"}, {Name: "d.srt"}},
		},
	}

	// map 遍历无序，取样必须按目录名排序后进行
	want := []string{"a.mkv", "c.mkv", "b.mkv"}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, sampleNames(snap))
	}
}

func TestOrganizer_SearchFallsBackToListing(t *testing.T) {
	remote := &fakeRemote{dirs: map[string][]model.Entry{
		"/tv": {
			{Path: "/tv/龙岭迷窟 4K", Name: "龙岭迷窟 4K", IsDir: true},
			{Path: "/tv/Silo (2023)", Name: "Silo (2023)", IsDir: true},
			{Path: "/tv/notes.txt", Name: "notes.txt"},
		},
	}}
	o := newOrganizer(t, remote)

	hits, err := o.SearchShows(context.Background(), "/tv", "龙岭迷窟")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "龙岭迷窟 4K", hits[0].Name)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/tvtidy/internal/journal"
	"github.com/pokerjest/tvtidy/internal/model"
)

// fakeBackend 记录调用序列，failOn 命中的路径返回错误
type fakeBackend struct {
	calls  []string
	failOn map[string]error
}

func (f *fakeBackend) op(format string, args ...interface{}) error {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	for k, err := range f.failOn {
		if k == call {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) Rename(_ context.Context, path, newName string) error {
	return f.op("rename %s -> %s", path, newName)
}
func (f *fakeBackend) Move(_ context.Context, srcDir, dstDir string, names []string) error {
	return f.op("move %s/%s -> %s", srcDir, names[0], dstDir)
}
func (f *fakeBackend) Remove(_ context.Context, dir string, names []string) error {
	return f.op("remove %s/%s", dir, names[0])
}
func (f *fakeBackend) Mkdir(_ context.Context, path string) error {
	return f.op("mkdir %s", path)
}

func samplePlan() model.Plan {
	return model.Plan{
		Root: "/tv/Show (2020)",
		Operations: []model.Operation{
			{Kind: model.OpDelete, SourcePath: "/tv/Show (2020)/junk.url", Destructive: true},
			{Kind: model.OpRename, SourcePath: "/tv/Show (2020)/S01/E01.mkv",
				DestinationPath: "/tv/Show (2020)/S01/Show - S01E01.mkv"},
			{Kind: model.OpRenameAndMove, SourcePath: "/tv/Show (2020)/第一季/第2集.mkv",
				DestinationPath: "/tv/Show (2020)/S01/Show - S01E02.mkv"},
			{Kind: model.OpSkip, SourcePath: "/tv/Show (2020)/extra.txt", Reason: "no episode number"},
		},
	}
}

func newExecutor(t *testing.T, b Backend) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()
	jpath := filepath.Join(dir, "journal.jsonl")
	w, err := journal.NewWriter(jpath)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	st, err := journal.LoadState(filepath.Join(dir, "state.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &Executor{Backend: b, Journal: w, State: st, RunID: "run-1"}, jpath
}

func TestExecute_DryRunTouchesNothing(t *testing.T) {
	b := &fakeBackend{}
	e := &Executor{Backend: b, RunID: "run-dry"}

	report, err := e.Execute(context.Background(), samplePlan(), false)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Empty(t, b.calls)
	assert.Len(t, report.Outcomes, 4)
	assert.Equal(t, 0, report.Failed)
}

func TestExecute_AppliesAndJournals(t *testing.T) {
	b := &fakeBackend{}
	e, jpath := newExecutor(t, b)

	report, err := e.Execute(context.Background(), samplePlan(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)

	assert.Equal(t, []string{
		"remove /tv/Show (2020)/junk.url",
		"rename /tv/Show (2020)/S01/E01.mkv -> Show - S01E01.mkv",
		"rename /tv/Show (2020)/第一季/第2集.mkv -> Show - S01E02.mkv",
		"mkdir /tv/Show (2020)/S01",
		"move /tv/Show (2020)/第一季/Show - S01E02.mkv -> /tv/Show (2020)/S01",
	}, b.calls)

	recs, err := journal.Read(jpath)
	require.NoError(t, err)
	// rename-and-move 拆成两条原语
	require.Len(t, recs, 4)
	assert.Equal(t, model.OpDelete, recs[0].Kind)
	assert.Equal(t, model.OpRename, recs[1].Kind)
	assert.Equal(t, model.OpRename, recs[2].Kind)
	assert.Equal(t, model.OpMove, recs[3].Kind)
	assert.Equal(t, "run-1", recs[0].RunID)
	for _, rec := range recs {
		assert.Equal(t, journal.OutcomeSuccess, rec.Outcome)
	}
}

func TestExecute_FailureContinuesRun(t *testing.T) {
	b := &fakeBackend{failOn: map[string]error{
		"rename /tv/Show (2020)/S01/E01.mkv -> Show - S01E01.mkv": errors.New("boom"),
	}}
	e, jpath := newExecutor(t, b)

	report, err := e.Execute(context.Background(), samplePlan(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	// 后续操作照常执行
	assert.Contains(t, b.calls, "move /tv/Show (2020)/第一季/Show - S01E02.mkv -> /tv/Show (2020)/S01")

	// 失败的操作也落 journal，outcome 标成 failure
	recs, err := journal.Read(jpath)
	require.NoError(t, err)
	var failed []journal.Record
	for _, rec := range recs {
		if rec.Outcome == journal.OutcomeFailure {
			failed = append(failed, rec)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, model.OpRename, failed[0].Kind)
	assert.Equal(t, "/tv/Show (2020)/S01/E01.mkv", failed[0].Source)

	// undo 时失败记录直接跳过，不产生任何远端调用
	b2 := &fakeBackend{}
	u := &UndoEngine{Backend: b2}
	undoReport := u.Undo(context.Background(), failed)
	assert.Equal(t, 1, undoReport.SkippedNA)
	assert.Equal(t, 0, undoReport.Reverted)
	assert.Empty(t, b2.calls)
}

func TestExecute_ResumeSkipsDone(t *testing.T) {
	b := &fakeBackend{}
	e, _ := newExecutor(t, b)
	plan := samplePlan()

	_, err := e.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	firstCalls := len(b.calls)

	report, err := e.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, firstCalls, len(b.calls), "completed ops must not re-run")
	skipped := 0
	for _, o := range report.Outcomes {
		if o.Skipped {
			skipped++
		}
	}
	assert.Equal(t, 4, skipped) // 3 个已完成 + 1 个计划内 skip
}

func TestExecute_StopHaltsBetweenOps(t *testing.T) {
	b := &fakeBackend{}
	e, _ := newExecutor(t, b)
	n := 0
	e.Stop = func() bool { n++; return n > 1 }

	report, err := e.Execute(context.Background(), samplePlan(), true)
	require.NoError(t, err)
	assert.True(t, report.Stopped)
	assert.Len(t, report.Outcomes, 1)
}

func TestUndo_ReversesJournal(t *testing.T) {
	recs := []journal.Record{
		{Kind: model.OpDelete, Source: "/tv/Show (2020)/junk.url"},
		{Kind: model.OpRename, Source: "/tv/Show (2020)/S01/E01.mkv",
			Destination: "/tv/Show (2020)/S01/Show - S01E01.mkv"},
		{Kind: model.OpMove, Source: "/tv/Show (2020)/第一季/Show - S01E02.mkv",
			Destination: "/tv/Show (2020)/S01/Show - S01E02.mkv"},
	}
	b := &fakeBackend{}
	u := &UndoEngine{Backend: b}

	report := u.Undo(context.Background(), recs)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Reverted)
	assert.Equal(t, 1, report.SkippedNA)
	assert.Equal(t, 0, report.Failed)

	// 逆序回放：先撤销 move 再撤销 rename
	assert.Equal(t, []string{
		"move /tv/Show (2020)/S01/Show - S01E02.mkv -> /tv/Show (2020)/第一季",
		"rename /tv/Show (2020)/S01/Show - S01E01.mkv -> E01.mkv",
	}, b.calls)
}

func TestUndo_FailureKeepsGoing(t *testing.T) {
	recs := []journal.Record{
		{Kind: model.OpRename, Source: "/a/x.mkv", Destination: "/a/y.mkv"},
		{Kind: model.OpRename, Source: "/a/m.mkv", Destination: "/a/n.mkv"},
	}
	b := &fakeBackend{failOn: map[string]error{
		"rename /a/n.mkv -> m.mkv": errors.New("gone"),
	}}
	u := &UndoEngine{Backend: b}

	report := u.Undo(context.Background(), recs)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Reverted)
}

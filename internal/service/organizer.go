package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pokerjest/tvtidy/internal/alist"
	"github.com/pokerjest/tvtidy/internal/event"
	"github.com/pokerjest/tvtidy/internal/executor"
	"github.com/pokerjest/tvtidy/internal/journal"
	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/parser"
	"github.com/pokerjest/tvtidy/internal/planner"
	"github.com/pokerjest/tvtidy/internal/resolver"
)

// Remote 远端网盘的全部能力，生产环境由 alist client 实现
type Remote interface {
	planner.Lister
	executor.Backend
	Search(ctx context.Context, parent, keyword string) ([]model.Entry, error)
}

// 编译期保证 alist client 可当 Remote 用
var _ Remote = (*alist.Client)(nil)

// Organizer 把解析、规划、执行串成完整流程。一个实例跑一次 run。
type Organizer struct {
	Alist    Remote
	Resolver *resolver.Resolver
	Options  planner.Options
	DataDir  string   // journal 和断点状态都放这里
	DB       *gorm.DB // 可为 nil，Run 记录就不落库
	// Stop 执行器在每个操作前询问 (日志页的停止按钮)
	Stop func() bool
	// Confirm 每个根落地前询问一次，nil 表示不询问。
	// 返回 false 该根整个跳过。
	Confirm func(plan model.Plan) bool

	log *logrus.Entry
}

func (o *Organizer) logger() *logrus.Entry {
	if o.log == nil {
		o.log = logrus.WithField("component", "organizer")
	}
	return o.log
}

// PlanRoot 给一个剧根目录出计划，不落地任何变更。
func (o *Organizer) PlanRoot(ctx context.Context, root string) (model.Plan, error) {
	root = strings.TrimRight(root, "/")
	snap, err := planner.TakeSnapshot(ctx, o.Alist, root, o.Options.Rules)
	if err != nil {
		return model.Plan{}, fmt.Errorf("snapshot %s: %w", root, err)
	}

	id, err := o.Resolver.Resolve(ctx, path.Base(root), sampleNames(snap))
	if err != nil {
		return model.Plan{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	if !id.Resolved() {
		o.logger().WithField("root", root).Warn("could not resolve show, leaving untouched")
	}

	plan := planner.Build(snap, id, o.Options)
	event.GlobalBus.Publish(event.EventPlanReady, plan)
	return plan, nil
}

// sampleNames 取几个视频文件名给辅助清洗当线索。
// 按目录名有序遍历，同一快照取样结果稳定。
func sampleNames(snap *planner.Snapshot) []string {
	dirs := make([]string, 0, len(snap.Entries))
	for d := range snap.Entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var out []string
	for _, d := range dirs {
		for _, e := range snap.Entries[d] {
			if !e.IsDir && parser.IsVideoFile(e.Name) {
				out = append(out, e.Name)
				if len(out) >= 5 {
					return out
				}
			}
		}
	}
	return out
}

// DryRun 对多个根演练，只打印每一步。
func (o *Organizer) DryRun(ctx context.Context, roots []string) ([]model.ExecutionReport, error) {
	var reports []model.ExecutionReport
	for _, root := range roots {
		plan, err := o.PlanRoot(ctx, root)
		if err != nil {
			return reports, err
		}
		exec := &executor.Executor{Backend: o.Alist, RunID: "dry-run", Stop: o.Stop}
		report, err := exec.Execute(ctx, plan, false)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Apply 真正执行。所有根共用一份 journal，undo 以 run 为单位。
func (o *Organizer) Apply(ctx context.Context, roots []string) ([]model.ExecutionReport, error) {
	runID := uuid.New().String()
	journalPath := filepath.Join(o.DataDir, "journals", runID+".jsonl")

	w, err := journal.NewWriter(journalPath)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	run := o.startRun(runID, journalPath, roots)

	var reports []model.ExecutionReport
	status := "done"
	for _, root := range roots {
		plan, err := o.PlanRoot(ctx, root)
		if err != nil {
			o.finishRun(run, reports, "error")
			return reports, err
		}
		o.logger().WithFields(logrus.Fields{
			"root": root, "mutations": plan.Mutations(),
		}).Info("plan ready")

		if o.Confirm != nil && !o.Confirm(plan) {
			o.logger().WithField("root", root).Info("declined, root skipped")
			continue
		}

		st, err := journal.LoadState(o.statePath(root))
		if err != nil {
			o.finishRun(run, reports, "error")
			return reports, err
		}

		exec := &executor.Executor{
			Backend: o.Alist,
			Journal: w,
			State:   st,
			RunID:   runID,
			Stop:    o.Stop,
		}
		report, err := exec.Execute(ctx, plan, true)
		reports = append(reports, report)
		if err != nil {
			st.Close()
			o.finishRun(run, reports, "error")
			return reports, fmt.Errorf("run %s aborted: %w", runID, err)
		}
		if report.Stopped {
			st.Close()
			status = "stopped"
			break
		}
		// 整个根顺利跑完，断点状态不再需要
		if report.Failed == 0 {
			if err := st.Clear(); err != nil {
				o.logger().WithError(err).Warn("failed to clear resume state")
			}
		} else {
			st.Close()
		}
	}

	o.finishRun(run, reports, status)
	event.GlobalBus.Publish(event.EventRunFinished, reports)
	return reports, nil
}

// Undo 回滚一次 run。runID 也可以是 journal 文件路径。
func (o *Organizer) Undo(ctx context.Context, runID string) (model.UndoReport, error) {
	journalPath := runID
	if !strings.ContainsAny(runID, "/\\") {
		if o.DB != nil {
			var run model.Run
			if err := o.DB.Where("run_id = ?", runID).First(&run).Error; err == nil {
				journalPath = run.JournalPath
			} else {
				journalPath = filepath.Join(o.DataDir, "journals", runID+".jsonl")
			}
		} else {
			journalPath = filepath.Join(o.DataDir, "journals", runID+".jsonl")
		}
	}

	recs, err := journal.Read(journalPath)
	if err != nil {
		return model.UndoReport{}, fmt.Errorf("read journal: %w", err)
	}

	undo := &executor.UndoEngine{Backend: o.Alist}
	report := undo.Undo(ctx, recs)
	o.logger().WithFields(logrus.Fields{
		"total": report.Total, "reverted": report.Reverted,
		"skipped": report.SkippedNA, "failed": report.Failed,
	}).Info("undo finished")
	return report, nil
}

// SearchShows 在 parent 下找剧目录：先走 alist 索引，
// 没结果再列目录做模糊匹配兜底。
func (o *Organizer) SearchShows(ctx context.Context, parent, keyword string) ([]model.Entry, error) {
	hits, err := o.Alist.Search(ctx, parent, keyword)
	if err != nil {
		o.logger().WithError(err).Debug("index search failed, falling back to listing")
	}
	if len(hits) > 0 {
		return hits, nil
	}

	entries, err := o.Alist.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	var out []model.Entry
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		if resolver.Similarity(keyword, e.Name) >= 0.5 ||
			strings.Contains(strings.ToLower(e.Name), strings.ToLower(keyword)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *Organizer) statePath(root string) string {
	safe := strings.Trim(strings.ReplaceAll(root, "/", "_"), "_")
	return filepath.Join(o.DataDir, "state", safe+".txt")
}

func (o *Organizer) startRun(runID, journalPath string, roots []string) *model.Run {
	run := &model.Run{
		RunID:       runID,
		JournalPath: journalPath,
		Roots:       strings.Join(roots, ","),
		Status:      "running",
	}
	if o.DB != nil {
		if err := o.DB.Create(run).Error; err != nil {
			o.logger().WithError(err).Warn("failed to record run")
		}
	}
	return run
}

func (o *Organizer) finishRun(run *model.Run, reports []model.ExecutionReport, status string) {
	applied, failed := 0, 0
	for _, r := range reports {
		failed += r.Failed
		for _, out := range r.Outcomes {
			if out.Applied {
				applied++
			}
		}
	}
	run.Applied = applied
	run.Failed = failed
	run.Status = status
	if o.DB != nil {
		if err := o.DB.Save(run).Error; err != nil {
			o.logger().WithError(err).Warn("failed to update run")
		}
	}
}

package executor

import (
	"context"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/pokerjest/tvtidy/internal/event"
	"github.com/pokerjest/tvtidy/internal/journal"
	"github.com/pokerjest/tvtidy/internal/model"
)

// Backend 远端文件操作端 (生产环境是 alist client)
type Backend interface {
	Rename(ctx context.Context, path, newName string) error
	Move(ctx context.Context, srcDir, dstDir string, names []string) error
	Remove(ctx context.Context, dir string, names []string) error
	Mkdir(ctx context.Context, path string) error
}

// Executor 顺序执行一个计划。
// 每个操作成功落地后先写 journal 再进行下一个；journal 写失败中止整个
// run (没有 journal 的变更无法回滚)。单个操作失败只记数，继续执行。
type Executor struct {
	Backend Backend
	Journal *journal.Writer // apply 时必填
	State   *journal.State  // 可选，断点续跑
	RunID   string
	// Stop 每个操作前询问一次，true 则停在当前位置
	Stop func() bool

	log  *logrus.Entry
	made map[string]bool
}

func (e *Executor) logger() *logrus.Entry {
	if e.log == nil {
		e.log = logrus.WithFields(logrus.Fields{"component": "executor", "run_id": e.RunID})
	}
	return e.log
}

// Execute 跑完一个计划。apply=false 是演练，只打印不落地。
func (e *Executor) Execute(ctx context.Context, plan model.Plan, apply bool) (model.ExecutionReport, error) {
	report := model.ExecutionReport{RunID: e.RunID, DryRun: !apply}
	if apply && e.Journal == nil {
		return report, fmt.Errorf("executor: journal required for apply")
	}
	e.made = map[string]bool{}

	for _, op := range plan.Operations {
		if e.Stop != nil && e.Stop() {
			e.logger().Warn("stop requested, halting run")
			report.Stopped = true
			break
		}
		if err := ctx.Err(); err != nil {
			report.Stopped = true
			break
		}

		outcome := model.OpOutcome{Operation: op}
		switch {
		case op.Kind == model.OpSkip:
			e.logger().WithFields(logrus.Fields{"src": op.SourcePath, "reason": op.Reason}).Info("skip")
			outcome.Skipped = true

		case e.State != nil && e.State.Done(op.ID()):
			e.logger().WithField("src", op.SourcePath).Debug("already done in previous run")
			outcome.Skipped = true

		case !apply:
			e.logger().WithFields(logrus.Fields{
				"kind": op.Kind, "src": op.SourcePath, "dst": op.DestinationPath,
			}).Info("would apply")

		default:
			if err := e.apply(ctx, op); err != nil {
				if _, fatal := err.(journalError); fatal {
					report.Outcomes = append(report.Outcomes, outcome)
					report.Failed++
					return report, err
				}
				e.logger().WithError(err).WithField("src", op.SourcePath).Error("operation failed")
				outcome.Err = err
				report.Failed++
				// 失败也要落 journal，undo 按 outcome 跳过这类记录
				if jerr := e.recordOutcome(op.Kind, op.SourcePath, op.DestinationPath,
					journal.OutcomeFailure); jerr != nil {
					report.Outcomes = append(report.Outcomes, outcome)
					return report, jerr
				}
				event.GlobalBus.Publish(event.EventOpFailed, op)
			} else {
				outcome.Applied = true
				event.GlobalBus.Publish(event.EventOpApplied, op)
				if e.State != nil {
					if err := e.State.MarkDone(op.ID()); err != nil {
						return report, journalError{err}
					}
				}
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}

// journalError 标记必须中止整个 run 的错误
type journalError struct{ err error }

func (j journalError) Error() string { return j.err.Error() }
func (j journalError) Unwrap() error { return j.err }

func (e *Executor) apply(ctx context.Context, op model.Operation) error {
	switch op.Kind {
	case model.OpDelete:
		dir, name := path.Split(op.SourcePath)
		if err := e.Backend.Remove(ctx, path.Clean(dir), []string{name}); err != nil {
			return err
		}
		return e.record(op.Kind, op.SourcePath, "")

	case model.OpRename:
		if err := e.Backend.Rename(ctx, op.SourcePath, path.Base(op.DestinationPath)); err != nil {
			return err
		}
		return e.record(op.Kind, op.SourcePath, op.DestinationPath)

	case model.OpMove:
		if err := e.ensureDir(ctx, path.Dir(op.DestinationPath)); err != nil {
			return err
		}
		if err := e.Backend.Move(ctx, path.Dir(op.SourcePath), path.Dir(op.DestinationPath),
			[]string{path.Base(op.SourcePath)}); err != nil {
			return err
		}
		return e.record(op.Kind, op.SourcePath, op.DestinationPath)

	case model.OpRenameAndMove:
		// 拆成先改名后搬家两步，journal 里也是两条原语，undo 按原语回放
		newName := path.Base(op.DestinationPath)
		renamed := path.Dir(op.SourcePath) + "/" + newName
		if err := e.Backend.Rename(ctx, op.SourcePath, newName); err != nil {
			return err
		}
		if err := e.record(model.OpRename, op.SourcePath, renamed); err != nil {
			return err
		}
		if err := e.ensureDir(ctx, path.Dir(op.DestinationPath)); err != nil {
			return err
		}
		if err := e.Backend.Move(ctx, path.Dir(op.SourcePath), path.Dir(op.DestinationPath),
			[]string{newName}); err != nil {
			return err
		}
		return e.record(model.OpMove, renamed, op.DestinationPath)

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (e *Executor) ensureDir(ctx context.Context, dir string) error {
	if e.made[dir] {
		return nil
	}
	if err := e.Backend.Mkdir(ctx, dir); err != nil {
		return err
	}
	e.made[dir] = true
	return nil
}

func (e *Executor) record(kind model.OpKind, src, dst string) error {
	return e.recordOutcome(kind, src, dst, journal.OutcomeSuccess)
}

func (e *Executor) recordOutcome(kind model.OpKind, src, dst, outcome string) error {
	err := e.Journal.Append(journal.Record{
		RunID:       e.RunID,
		Kind:        kind,
		Source:      src,
		Destination: dst,
		Outcome:     outcome,
	})
	if err != nil {
		return journalError{err}
	}
	return nil
}

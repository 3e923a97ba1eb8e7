package executor

import (
	"context"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/pokerjest/tvtidy/internal/journal"
	"github.com/pokerjest/tvtidy/internal/model"
)

// UndoEngine 把一次 run 的 journal 逆序回放。
// rename/move 可逆；delete 不可逆，跳过并告警。
type UndoEngine struct {
	Backend Backend

	log *logrus.Entry
}

func (u *UndoEngine) logger() *logrus.Entry {
	if u.log == nil {
		u.log = logrus.WithField("component", "undo")
	}
	return u.log
}

func (u *UndoEngine) Undo(ctx context.Context, recs []journal.Record) model.UndoReport {
	report := model.UndoReport{Total: len(recs)}

	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		// 失败的操作没有落地，没有东西可回滚
		if rec.Outcome == journal.OutcomeFailure {
			u.logger().WithField("src", rec.Source).Debug("skipping failed record")
			report.SkippedNA++
			continue
		}
		var err error
		switch rec.Kind {
		case model.OpRename:
			err = u.Backend.Rename(ctx, rec.Destination, path.Base(rec.Source))
		case model.OpMove:
			err = u.Backend.Move(ctx,
				path.Dir(rec.Destination), path.Dir(rec.Source),
				[]string{path.Base(rec.Destination)})
		case model.OpDelete:
			u.logger().WithField("src", rec.Source).Warn("delete cannot be undone, skipping")
			report.SkippedNA++
			continue
		default:
			u.logger().WithField("kind", rec.Kind).Warn("unknown journal record, skipping")
			report.SkippedNA++
			continue
		}

		if err != nil {
			u.logger().WithError(err).WithFields(logrus.Fields{
				"kind": rec.Kind, "src": rec.Source, "dst": rec.Destination,
			}).Error("undo step failed")
			report.Failed++
			continue
		}
		report.Reverted++
	}
	return report
}

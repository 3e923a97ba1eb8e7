package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Entry 代表 alist 目录列表中的一个条目
// Path 为相对库根的完整路径 (如 "/tv/鹿鼎记/S01/01.mp4")
type Entry struct {
	Path     string
	Name     string
	IsDir    bool
	Size     int64
	Modified time.Time // 仅用于日志展示
}

// ResolutionSource 标记剧名是通过什么途径确定的
type ResolutionSource string

const (
	SourceAlreadyCanonical ResolutionSource = "already-canonical"
	SourceMetadataLookup   ResolutionSource = "metadata-lookup"
	SourceAssistantLookup  ResolutionSource = "assistant-then-lookup"
	SourceUnresolved       ResolutionSource = "unresolved"
)

// ShowIdentity 是一个剧根目录解析后的规范身份
type ShowIdentity struct {
	Title  string
	Year   int // 0 表示未知
	Source ResolutionSource
}

// Resolved reports whether destructive planning is allowed for this show.
func (s ShowIdentity) Resolved() bool {
	return s.Source != SourceUnresolved && s.Title != ""
}

// DirName 返回规范剧目录名 "Title (Year)"
func (s ShowIdentity) DirName() string {
	if s.Year > 0 {
		return fmt.Sprintf("%s (%d)", s.Title, s.Year)
	}
	return s.Title
}

// OpKind 计划操作类型
type OpKind string

const (
	OpRename        OpKind = "rename"
	OpMove          OpKind = "move"
	OpRenameAndMove OpKind = "rename-and-move"
	OpDelete        OpKind = "delete"
	OpSkip          OpKind = "skip"
)

// Operation 一条计划中的文件系统操作。PlanBuilder 创建后不再修改。
type Operation struct {
	Kind            OpKind
	SourcePath      string
	DestinationPath string // delete/skip 时为空
	Reason          string
	Destructive     bool
}

// ID returns a stable identifier used by the resume state file.
// 同一快照下同一操作的 ID 必须稳定，故只由内容推导，不含时间戳。
func (o Operation) ID() string {
	return string(o.Kind) + "|" + o.SourcePath + "|" + o.DestinationPath
}

// Plan 是一次规划的全部操作，顺序即执行顺序：
// 垃圾删除在前，视频在其字幕之前。
type Plan struct {
	Root       string
	Identity   ShowIdentity
	Operations []Operation
	// Conflicts 记录目标路径 -> 竞争失败的源路径 (policy=skip 时)
	Conflicts map[string][]string
}

// Mutations counts operations that would touch the remote tree.
func (p Plan) Mutations() int {
	n := 0
	for _, op := range p.Operations {
		if op.Kind != OpSkip {
			n++
		}
	}
	return n
}

// OpOutcome 单个操作的执行结果
type OpOutcome struct {
	Operation Operation
	Applied   bool
	Skipped   bool // 已在 state 文件中标记完成
	Err       error
}

// ExecutionReport 一次 apply/dry-run 的汇总
type ExecutionReport struct {
	RunID    string
	DryRun   bool
	Outcomes []OpOutcome
	Failed   int
	Stopped  bool // 用户通过日志页请求停止
}

// UndoReport 回滚结果汇总
type UndoReport struct {
	Total     int
	Reverted  int
	SkippedNA int // delete 等不可逆操作
	Failed    int
}

// ResolvedShow 持久化的剧名解析缓存，替代逐次请求 TMDB
type ResolvedShow struct {
	gorm.Model
	QueryKey string `gorm:"uniqueIndex"` // 清洗后的查询串
	TVID     int
	Title    string
	Year     int
}

// Run 记录一次 apply 运行，方便 undo 时找到对应的 journal
type Run struct {
	gorm.Model
	RunID       string `gorm:"uniqueIndex"`
	JournalPath string
	Roots       string // 逗号分隔
	Applied     int
	Failed      int
	Status      string // "running", "done", "stopped", "error"
}

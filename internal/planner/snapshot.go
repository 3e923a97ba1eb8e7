package planner

import (
	"context"
	"sort"

	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/parser"
)

// Lister 目录列举端 (生产环境是 alist client)
type Lister interface {
	List(ctx context.Context, dir string) ([]model.Entry, error)
}

// Snapshot 一个剧根的只读快照。规划是纯函数，IO 全在快照阶段完成，
// 同一快照构建出的计划逐字节一致。
type Snapshot struct {
	Root string
	// Entries 目录路径 -> 按名字排序的子条目
	Entries map[string][]model.Entry
}

func (s *Snapshot) children(dir string) []model.Entry {
	return s.Entries[dir]
}

// TakeSnapshot 列举根目录和它的子目录。深度按库结构固定：
// 根 -> 季目录/字幕目录 -> 季目录内的字幕目录。
func TakeSnapshot(ctx context.Context, l Lister, root string, rules parser.Rules) (*Snapshot, error) {
	snap := &Snapshot{Root: root, Entries: make(map[string][]model.Entry)}

	rootEntries, err := l.List(ctx, root)
	if err != nil {
		return nil, err
	}
	sortEntries(rootEntries)
	snap.Entries[root] = rootEntries

	for _, e := range rootEntries {
		if !e.IsDir {
			continue
		}
		switch rules.Classify(e) {
		case parser.CategoryJunkDir:
			// 整目录待删，不必列举
			continue
		case parser.CategorySeasonDir, parser.CategorySubtitleDir, parser.CategoryNormalDir:
			sub, err := l.List(ctx, e.Path)
			if err != nil {
				return nil, err
			}
			sortEntries(sub)
			snap.Entries[e.Path] = sub

			// 季目录里可能还有一层字幕目录
			for _, in := range sub {
				if in.IsDir && rules.Classify(in) == parser.CategorySubtitleDir {
					inner, err := l.List(ctx, in.Path)
					if err != nil {
						return nil, err
					}
					sortEntries(inner)
					snap.Entries[in.Path] = inner
				}
			}
		}
	}
	return snap, nil
}

func sortEntries(es []model.Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
}

package planner

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/parser"
)

const (
	ConflictSuffix = "suffix"
	ConflictSkip   = "skip"
)

type Options struct {
	OnConflict string // suffix | skip
	Rules      parser.Rules
}

// Build 把快照和剧身份变成操作计划。纯函数：同输入必出同计划。
// 计划顺序即执行顺序：垃圾删除 -> 根改名 -> 季目录归一 -> 视频 (字幕紧随
// 各自的视频) -> 合并收尾的搬运和目录删除。
func Build(snap *Snapshot, id model.ShowIdentity, opts Options) model.Plan {
	plan := model.Plan{Root: snap.Root, Identity: id, Conflicts: map[string][]string{}}
	// 未解析的根不做任何变更
	if !id.Resolved() {
		return plan
	}
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictSuffix
	}

	b := &builder{snap: snap, id: id, opts: opts, plan: &plan, used: map[string]bool{}}
	b.run()
	return plan
}

// source 一个待规划文件和它执行期的位置
type source struct {
	entry    model.Entry
	execDir  string // 根/季目录改名落地后的所在目录
	dirKey   int    // 所在季目录的季号，-1 表示不在季目录里
	mergeDir string // 非空表示所在目录要清空合并删除
}

type builder struct {
	snap *Snapshot
	id   model.ShowIdentity
	opts Options
	plan *model.Plan

	newRoot string
	used    map[string]bool // 执行结束后会被占用的路径

	videos    []source
	subs      []source
	others    []source // 合并目录里需要顺带搬走的杂项
	skips     []model.Operation
	cleanup   []model.Operation
	mergeStay map[string]bool // 合并目录里有东西留下，不能删

	// (season<<16|episode) -> 视频最终 stem 与所在季目录
	pairStem map[int]string
	pairDir  map[int]string
	// 配对键 -> 视频操作在计划里的下标，字幕 op 插在它后面
	videoOpIdx map[int]int
}

func pairKey(season, episode int) int { return season<<16 | episode }

func (b *builder) run() {
	root := b.snap.Root
	rootEntries := b.snap.children(root)

	// 1. 垃圾清理，用改名前的路径
	b.collectJunk(root, rootEntries)

	// 2. 根目录改名
	b.newRoot = path.Join(path.Dir(root), b.id.DirName())
	if path.Base(root) != b.id.DirName() {
		b.append(model.Operation{
			Kind:            model.OpRename,
			SourcePath:      root,
			DestinationPath: b.newRoot,
			Reason:          "canonical show directory",
			Destructive:     false,
		})
	}

	// 3. 季目录分组与归一
	b.groupSeasons(rootEntries)

	// 4. 视频与字幕
	b.planVideos()
	b.planSubtitles()

	// 5. 合并目录里的杂项搬运与收尾删除
	b.planOthers()
	b.plan.Operations = append(b.plan.Operations, b.cleanup...)
	b.plan.Operations = append(b.plan.Operations, b.skips...)
}

func (b *builder) append(op model.Operation) {
	b.plan.Operations = append(b.plan.Operations, op)
}

// rebase 把快照路径映射到根改名后的路径
func (b *builder) rebase(p string) string {
	root := b.snap.Root
	if p == root {
		return b.newRoot
	}
	if strings.HasPrefix(p, root+"/") {
		return b.newRoot + p[len(root):]
	}
	return p
}

func (b *builder) collectJunk(root string, rootEntries []model.Entry) {
	junkDirs := map[string]bool{}
	for _, e := range rootEntries {
		if e.IsDir && b.opts.Rules.Classify(e) == parser.CategoryJunkDir {
			junkDirs[e.Path] = true
			b.append(model.Operation{
				Kind: model.OpDelete, SourcePath: e.Path,
				Reason: "junk directory", Destructive: true,
			})
		}
	}

	var dirs []string
	for d := range b.snap.Entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		if junkDirs[d] {
			continue
		}
		for _, e := range b.snap.Entries[d] {
			if !e.IsDir && b.opts.Rules.Classify(e) == parser.CategoryJunkFile {
				b.append(model.Operation{
					Kind: model.OpDelete, SourcePath: e.Path,
					Reason: "junk file", Destructive: true,
				})
			}
		}
	}
}

func (b *builder) groupSeasons(rootEntries []model.Entry) {
	b.mergeStay = map[string]bool{}
	b.pairStem = map[int]string{}
	b.pairDir = map[int]string{}
	b.videoOpIdx = map[int]int{}

	groups := map[int][]model.Entry{}
	var keys []int
	for _, e := range rootEntries {
		if !e.IsDir {
			continue
		}
		switch b.opts.Rules.Classify(e) {
		case parser.CategorySeasonDir:
			key, _ := parser.SeasonKey(e.Name)
			if len(groups[key]) == 0 {
				keys = append(keys, key)
			}
			groups[key] = append(groups[key], e)
		case parser.CategoryNormalDir:
			// 打包目录：内容照常规划，目录本身留在原地
			b.addDirSources(e, -1, "")
		case parser.CategorySubtitleDir:
			b.addSubtitleDir(e, -1)
		}
	}
	sort.Ints(keys)

	for _, key := range keys {
		dirs := groups[key]
		canonical := parser.SeasonDirName(key)
		canonicalPath := b.newRoot + "/" + canonical

		// 已是规范名的目录优先当主目录
		primary := 0
		for i, d := range dirs {
			if d.Name == canonical {
				primary = i
				break
			}
		}

		if dirs[primary].Name != canonical {
			b.append(model.Operation{
				Kind:            model.OpRename,
				SourcePath:      b.rebase(dirs[primary].Path),
				DestinationPath: canonicalPath,
				Reason:          fmt.Sprintf("normalize season directory to %s", canonical),
			})
		}
		b.used[canonicalPath] = true
		b.addDirSourcesAt(dirs[primary], canonicalPath, key, "")

		// 同季的其余拼写并入主目录后删除
		for i, d := range dirs {
			if i == primary {
				continue
			}
			merge := b.rebase(d.Path)
			b.addDirSourcesAt(d, merge, key, merge)
			b.cleanup = append(b.cleanup, model.Operation{
				Kind: model.OpDelete, SourcePath: merge,
				Reason:      fmt.Sprintf("merged into %s", canonical),
				Destructive: true,
			})
		}
	}

	// 根下散落的文件
	for _, e := range rootEntries {
		if e.IsDir {
			continue
		}
		b.addFileSource(e, b.newRoot, -1, "")
	}
}

func (b *builder) addDirSources(dir model.Entry, key int, mergeDir string) {
	b.addDirSourcesAt(dir, b.rebase(dir.Path), key, mergeDir)
}

// addDirSourcesAt 登记 dir 的内容，execDir 是执行期该目录的真实路径
func (b *builder) addDirSourcesAt(dir model.Entry, execDir string, key int, mergeDir string) {
	for _, e := range b.snap.children(dir.Path) {
		if e.IsDir {
			if b.opts.Rules.Classify(e) == parser.CategorySubtitleDir {
				b.addSubtitleDirAt(e, execDir+"/"+e.Name, key)
			}
			continue
		}
		b.addFileSource(e, execDir, key, mergeDir)
	}
}

func (b *builder) addSubtitleDir(dir model.Entry, key int) {
	b.addSubtitleDirAt(dir, b.rebase(dir.Path), key)
}

// addSubtitleDirAt 登记字幕目录。目录自身计划删除，文件留下时
// 收尾阶段按 mergeStay 前缀过滤，连同外层合并目录一起保住。
func (b *builder) addSubtitleDirAt(dir model.Entry, execDir string, key int) {
	files := b.snap.children(dir.Path)
	for _, e := range files {
		if e.IsDir {
			continue
		}
		if parser.IsSubtitleFile(e.Name) {
			b.subs = append(b.subs, source{entry: e, execDir: execDir, dirKey: key, mergeDir: execDir})
		} else if b.opts.Rules.Classify(e) != parser.CategoryJunkFile {
			b.mergeStay[execDir] = true
		}
	}
	if len(files) > 0 {
		// 清空后的字幕目录一并删掉；有东西留下就不删 (收尾时按 mergeStay 过滤)
		b.cleanup = append(b.cleanup, model.Operation{
			Kind: model.OpDelete, SourcePath: execDir,
			Reason:      "emptied subtitle directory",
			Destructive: true,
		})
	}
}

func (b *builder) addFileSource(e model.Entry, execDir string, key int, mergeDir string) {
	switch b.opts.Rules.Classify(e) {
	case parser.CategoryVideo:
		b.videos = append(b.videos, source{entry: e, execDir: execDir, dirKey: key, mergeDir: mergeDir})
	case parser.CategorySubtitle:
		b.subs = append(b.subs, source{entry: e, execDir: execDir, dirKey: key, mergeDir: mergeDir})
	case parser.CategoryJunkFile:
		// 已在垃圾阶段删除
	default:
		if mergeDir != "" {
			b.others = append(b.others, source{entry: e, execDir: execDir, dirKey: key, mergeDir: mergeDir})
		} else {
			// 留在原地，占住路径
			b.used[execDir+"/"+e.Name] = true
		}
	}
}

func (b *builder) planVideos() {
	type job struct {
		src    source
		parsed parser.ParsedName
		season int
	}
	var jobs []job
	for _, v := range b.videos {
		p := b.opts.Rules.Parse(v.entry.Name)
		season := 1
		switch {
		case p.ExplicitSE:
			season = p.Season
		case v.dirKey >= 0:
			season = v.dirKey
		case p.HasSeason:
			season = p.Season
		}
		jobs = append(jobs, job{src: v, parsed: p, season: season})
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		a, c := jobs[i], jobs[j]
		if a.season != c.season {
			return a.season < c.season
		}
		if a.parsed.Episode != c.parsed.Episode {
			return a.parsed.Episode < c.parsed.Episode
		}
		return a.src.entry.Name < c.src.entry.Name
	})

	for _, j := range jobs {
		b.planVideo(j.src, j.parsed, j.season)
	}
}

func (b *builder) planVideo(v source, p parser.ParsedName, season int) {
	name := v.entry.Name
	srcPath := v.execDir + "/" + name
	seasonPath := b.newRoot + "/" + parser.SeasonDirName(season)

	if !p.HasEpisode {
		b.stay(v, srcPath)
		b.skips = append(b.skips, model.Operation{
			Kind: model.OpSkip, SourcePath: v.entry.Path,
			Reason: "no episode number",
		})
		return
	}

	// 多集合一的范围文件只挪位置，永不改名
	if p.IsRange() {
		if v.execDir == seasonPath {
			b.used[srcPath] = true
			return
		}
		dst, ok := b.reserve(seasonPath+"/"+name, v.entry.Path)
		if !ok {
			b.stay(v, srcPath)
			return
		}
		b.append(model.Operation{
			Kind: model.OpMove, SourcePath: srcPath, DestinationPath: dst,
			Reason: "episode range kept as-is",
		})
		return
	}

	// 已带明确 SxxEyy 且无噪声标记的名字不改名，只挪进规范季目录。
	// 裸 "S01E05.mkv" 这类缺剧名的除外，走下面的重写路径补前缀。
	if p.ExplicitSE && !p.MustRewrite() && !parser.NeedsSeriesPrefix(name, b.id.Title) {
		key := pairKey(season, p.Episode)
		ext := path.Ext(name)
		if v.execDir == seasonPath {
			b.used[srcPath] = true
			b.recordPair(key, strings.TrimSuffix(name, ext), seasonPath)
			return
		}
		dst, ok := b.reserve(seasonPath+"/"+name, v.entry.Path)
		if !ok {
			b.stay(v, srcPath)
			return
		}
		b.recordPair(key, strings.TrimSuffix(path.Base(dst), ext), seasonPath)
		b.append(model.Operation{
			Kind: model.OpMove, SourcePath: srcPath, DestinationPath: dst,
			Reason: "episode tag already explicit",
		})
		if _, exists := b.videoOpIdx[key]; !exists {
			b.videoOpIdx[key] = len(b.plan.Operations) - 1
		}
		return
	}

	stem := fmt.Sprintf("%s - S%02dE%02d", b.id.Title, season, p.Episode)
	if res := parser.ExtractResolution(name); res != "" {
		stem += " - " + res
	}
	ext := strings.ToLower(path.Ext(name))
	dst := seasonPath + "/" + stem + ext

	key := pairKey(season, p.Episode)
	if srcPath == dst {
		b.used[dst] = true
		b.recordPair(key, stem, seasonPath)
		return
	}

	dst, ok := b.reserve(dst, v.entry.Path)
	if !ok {
		b.stay(v, srcPath)
		return
	}
	// 冲突后缀会改 stem，字幕要跟着走
	finalStem := strings.TrimSuffix(path.Base(dst), ext)
	b.recordPair(key, finalStem, seasonPath)

	b.append(model.Operation{
		Kind:            kindFor(srcPath, dst),
		SourcePath:      srcPath,
		DestinationPath: dst,
		Reason:          "canonical episode name",
	})
	if _, exists := b.videoOpIdx[key]; !exists {
		b.videoOpIdx[key] = len(b.plan.Operations) - 1
	}
}

func (b *builder) recordPair(key int, stem, seasonPath string) {
	if _, exists := b.pairStem[key]; !exists {
		b.pairStem[key] = stem
		b.pairDir[key] = seasonPath
	}
}

// stay 文件留在原地：占住路径，所在合并目录不能删
func (b *builder) stay(v source, execPath string) {
	b.used[execPath] = true
	if v.mergeDir != "" {
		b.mergeStay[v.mergeDir] = true
	}
}

func (b *builder) planSubtitles() {
	subs := append([]source(nil), b.subs...)
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].execDir != subs[j].execDir {
			return subs[i].execDir < subs[j].execDir
		}
		return subs[i].entry.Name < subs[j].entry.Name
	})

	inserts := map[int][]model.Operation{}
	var tail []model.Operation

	for _, s := range subs {
		op, key, ok := b.planSubtitle(s)
		if !ok {
			continue
		}
		if at, found := b.videoOpIdx[key]; found {
			inserts[at] = append(inserts[at], op)
		} else {
			// 视频本来就叫规范名，没有对应的视频操作
			tail = append(tail, op)
		}
	}

	if len(inserts) == 0 && len(tail) == 0 {
		return
	}
	var out []model.Operation
	for i, op := range b.plan.Operations {
		out = append(out, op)
		out = append(out, inserts[i]...)
	}
	out = append(out, tail...)
	b.plan.Operations = out
}

// planSubtitle 返回 (op, 配对键, 是否生成操作)
func (b *builder) planSubtitle(s source) (model.Operation, int, bool) {
	name := s.entry.Name
	srcPath := s.execDir + "/" + name
	p := b.opts.Rules.Parse(name)

	if !p.HasEpisode {
		b.stay(s, srcPath)
		b.skips = append(b.skips, model.Operation{
			Kind: model.OpSkip, SourcePath: s.entry.Path,
			Reason: "subtitle without episode number",
		})
		return model.Operation{}, 0, false
	}

	season := -1
	switch {
	case p.ExplicitSE:
		season = p.Season
	case s.dirKey >= 0:
		season = s.dirKey
	case p.HasSeason:
		season = p.Season
	}

	key := -1
	if season >= 0 {
		key = pairKey(season, p.Episode)
		if _, ok := b.pairStem[key]; !ok {
			key = -1
		}
	}
	if key < 0 {
		// 没有季线索时，若该集号只在一个季出现就用它
		var hits []int
		for k := range b.pairStem {
			if k&0xffff == p.Episode {
				hits = append(hits, k)
			}
		}
		if len(hits) == 1 {
			key = hits[0]
		}
	}
	if key < 0 {
		b.stay(s, srcPath)
		b.skips = append(b.skips, model.Operation{
			Kind: model.OpSkip, SourcePath: s.entry.Path,
			Reason: "no matching episode",
		})
		return model.Operation{}, 0, false
	}

	dst := b.pairDir[key] + "/" + parser.SidecarName(b.pairStem[key], name)
	if dst == srcPath {
		b.used[dst] = true
		return model.Operation{}, 0, false
	}
	dst, ok := b.reserve(dst, s.entry.Path)
	if !ok {
		b.stay(s, srcPath)
		return model.Operation{}, 0, false
	}
	return model.Operation{
		Kind:            kindFor(srcPath, dst),
		SourcePath:      srcPath,
		DestinationPath: dst,
		Reason:          "follow paired episode",
	}, key, true
}

func (b *builder) planOthers() {
	for _, o := range b.others {
		srcPath := o.execDir + "/" + o.entry.Name
		season := o.dirKey
		if season < 0 {
			season = 1
		}
		seasonPath := b.newRoot + "/" + parser.SeasonDirName(season)
		dst, ok := b.reserve(seasonPath+"/"+o.entry.Name, o.entry.Path)
		if !ok {
			b.stay(o, srcPath)
			continue
		}
		b.append(model.Operation{
			Kind: model.OpMove, SourcePath: srcPath, DestinationPath: dst,
			Reason: "carried along season merge",
		})
	}

	// 过滤掉仍有内容留下的目录删除；子目录留下时外层也不能删
	var kept []model.Operation
	for _, op := range b.cleanup {
		if b.dirStays(op.SourcePath) {
			continue
		}
		kept = append(kept, op)
	}
	b.cleanup = kept
}

func (b *builder) dirStays(dirPath string) bool {
	if b.mergeStay[dirPath] {
		return true
	}
	for d := range b.mergeStay {
		if strings.HasPrefix(d, dirPath+"/") {
			return true
		}
	}
	return false
}

// reserve 申请一个目标路径。冲突时按策略追加 " (n)" 或放弃。
// 返回 (最终路径, 是否可用)。
func (b *builder) reserve(dst, src string) (string, bool) {
	if !b.used[dst] {
		b.used[dst] = true
		return dst, true
	}
	if b.opts.OnConflict == ConflictSkip {
		b.plan.Conflicts[dst] = append(b.plan.Conflicts[dst], src)
		b.skips = append(b.skips, model.Operation{
			Kind: model.OpSkip, SourcePath: src,
			Reason: "destination occupied: " + dst,
		})
		return "", false
	}
	ext := path.Ext(dst)
	base := strings.TrimSuffix(dst, ext)
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !b.used[cand] {
			b.used[cand] = true
			return cand, true
		}
	}
}

func kindFor(src, dst string) model.OpKind {
	sameDir := path.Dir(src) == path.Dir(dst)
	sameName := path.Base(src) == path.Base(dst)
	switch {
	case sameDir:
		return model.OpRename
	case sameName:
		return model.OpMove
	default:
		return model.OpRenameAndMove
	}
}


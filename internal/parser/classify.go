package parser

import (
	"path"
	"regexp"
	"strings"

	"github.com/pokerjest/tvtidy/internal/model"
)

// Category 条目分类
type Category string

const (
	CategoryVideo       Category = "video"
	CategorySubtitle    Category = "subtitle"
	CategoryJunkFile    Category = "junk-file"
	CategoryJunkDir     Category = "junk-dir"
	CategorySeasonDir   Category = "season-dir"
	CategorySubtitleDir Category = "subtitle-dir"
	CategoryNormalDir   Category = "normal-dir"
	CategoryOther       Category = "other"
)

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".m4v": true, ".ts": true, ".m2ts": true, ".webm": true,
	".rmvb": true,
}

var subtitleExts = map[string]bool{
	".srt": true, ".ass": true, ".ssa": true,
}

// 广告文档类扩展名，直接计划删除。.txt 永不删除。
var junkExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".url": true, ".lnk": true, ".html": true,
	".htm": true, ".torrent": true,
}

var subtitleDirNames = map[string]bool{
	"subs": true, "sub": true, "subtitle": true, "subtitles": true,
	"字幕": true, "字幕组": true, "subtitles&subs": true,
}

var defaultSkipDirRegex = regexp.MustCompile(
	`(?i)(福利|广告|推广|促销|活动|限时|花絮|特典|周边|海报|Poster|封面|截图|Thumbs|Promo|Samples?|Extras?|@eaDir|__MACOSX|lost\+found)`)

// Rules 携带可配置的分类/噪声词表。零值可用 (等价于 DefaultRules)。
type Rules struct {
	ExtraNoise   []string       // 追加的噪声标记
	SkipDirRegex *regexp.Regexp // 覆盖默认的垃圾目录正则
}

// DefaultRules 返回内置词表
func DefaultRules() Rules {
	return Rules{}
}

func (r Rules) skipRegex() *regexp.Regexp {
	if r.SkipDirRegex != nil {
		return r.SkipDirRegex
	}
	return defaultSkipDirRegex
}

// Parse 用本规则集解析名字 (带上配置的噪声词)。
func (r Rules) Parse(name string) ParsedName {
	return ParseWith(name, r.ExtraNoise)
}

// Classify 决定一个条目的类别。目录的季归属用 SeasonKey 单独取。
func (r Rules) Classify(e model.Entry) Category {
	if e.IsDir {
		name := strings.TrimSpace(e.Name)
		if subtitleDirNames[strings.ToLower(name)] {
			return CategorySubtitleDir
		}
		if _, ok := ParseSeason(name); ok && !IsSeasonRange(name) {
			return CategorySeasonDir
		}
		if r.skipRegex().MatchString(name) || len(noiseHits(name, r.ExtraNoise)) > 0 {
			return CategoryJunkDir
		}
		return CategoryNormalDir
	}

	ext := strings.ToLower(path.Ext(e.Name))
	switch {
	case videoExts[ext]:
		return CategoryVideo
	case subtitleExts[ext]:
		return CategorySubtitle
	case ext == ".txt":
		// 用户要求：永不删除 .txt
		return CategoryOther
	case junkExts[ext]:
		return CategoryJunkFile
	case len(noiseHits(e.Name, r.ExtraNoise)) > 0 && ext != ".nfo" && !imageExts[ext]:
		return CategoryJunkFile
	default:
		return CategoryOther
	}
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// IsVideoFile checks if the file is a video based on extension.
func IsVideoFile(name string) bool {
	return videoExts[strings.ToLower(path.Ext(name))]
}

// IsSubtitleFile checks if the file is a subtitle sidecar.
func IsSubtitleFile(name string) bool {
	return subtitleExts[strings.ToLower(path.Ext(name))]
}

// SeasonKey 把任意季目录拼写归一成季号，这是多拼写目录合并的分组键。
// 返回 (season, ok)。
func SeasonKey(dirName string) (int, bool) {
	if IsSeasonRange(dirName) {
		return 0, false
	}
	return ParseSeason(dirName)
}

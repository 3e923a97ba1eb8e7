package parser

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// ParsedName 是对一个原始条目名的结构化解析结果。
// 解析后不可变；每条规则独立，便于单测。
type ParsedName struct {
	Title      string   // 去掉标记后的标题片段，可能为空
	Season     int      // HasSeason=false 时无意义
	HasSeason  bool
	Episode    int      // HasEpisode=false 时无意义
	EpisodeEnd int      // >Episode 时表示 E01-E03 这类范围
	HasEpisode bool
	ExplicitSE bool     // 名字里本来就有 SxxEyy / 1x02
	Quality    []string // 质量标记，保持原始顺序
	Noise      []string // 命中的广告/引流标记
}

// IsRange reports whether the episode field covers more than one episode.
func (p ParsedName) IsRange() bool {
	return p.HasEpisode && p.EpisodeEnd > p.Episode
}

// MustRewrite 命中噪声标记的名字必须重写，即使已有合法 SxxEyy。
func (p ParsedName) MustRewrite() bool {
	return len(p.Noise) > 0
}

var (
	sxxEyyRegex     = regexp.MustCompile(`(?i)S(\d{1,2})\s*E(\d{1,3})(?:\s*[-~]\s*E?(\d{1,3}))?`)
	crossRegex      = regexp.MustCompile(`(?i)\b(\d{1,2})\s*[xX]\s*(\d{1,3})\b`)
	epNumRegex      = regexp.MustCompile(`(?i)\b(?:EP|E)(\d{1,3})\b`)
	epCNRegex       = regexp.MustCompile(`第\s*([一二三四五六七八九十\d]{1,4})\s*(?:集|话|回)`)
	leadNumRegex    = regexp.MustCompile(`^\s*(\d{1,3})(?:\D|$)`)
	bareNumRegex    = regexp.MustCompile(`(?:^|[\s._\-])0*(\d{1,3})(?:$|[\s._\-])`)
	leadingTagRegex = regexp.MustCompile(`^[【\[][^】\]]{1,60}[】\]]\s*`)
)

// 默认噪声词表；可通过配置扩展 (Rules.ExtraNoise)。
// 命中即强制重写，这是硬性规则而非启发。
var defaultNoiseMarkers = []string{
	"www.", "http://", "https://", "防走丢", "更多资源", "公众号", "关注",
	"扫码", "加群", "群号", "最新地址", "备用网址", "网址", "telegram", "t.me",
	"qq群",
}

// Parse 把原始文件/目录名解析成 ParsedName。纯函数，不做任何 IO。
func Parse(name string) ParsedName {
	return ParseWith(name, nil)
}

// ParseWith 同 Parse，附加额外噪声词表。
func ParseWith(name string, extraNoise []string) ParsedName {
	raw := strings.TrimSpace(name)
	out := ParsedName{}
	if raw == "" {
		return out
	}

	base := path.Base(raw)
	stem := strings.TrimSuffix(base, path.Ext(base))

	out.Noise = noiseHits(base, extraNoise)

	// 去掉开头的发布组标签 [xxx] / 【xxx】
	stem = leadingTagRegex.ReplaceAllString(stem, "")
	stem = NormalizeSpaces(ToHalfwidth(stem))
	out.Quality = QualityTokens(stem)

	// 季打包目录里出现的数字不能当集数
	rangeContainer := IsSeasonRange(stem)

	if s, ok := ParseSeason(stem); ok {
		out.Season = s
		out.HasSeason = true
	}

	// SxxEyy (可带 E01-E03 范围)
	if m := sxxEyyRegex.FindStringSubmatchIndex(stem); m != nil {
		g := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return stem[m[2*i]:m[2*i+1]]
		}
		out.Season, _ = strconv.Atoi(g(1))
		out.HasSeason = true
		out.Episode, _ = strconv.Atoi(g(2))
		out.HasEpisode = true
		out.ExplicitSE = true
		if end := g(3); end != "" {
			if e, err := strconv.Atoi(end); err == nil && e > out.Episode {
				out.EpisodeEnd = e
			}
		}
		out.Title = cleanTitle(stem[:m[0]])
		return out
	}

	// 1x02
	if m := crossRegex.FindStringSubmatchIndex(stem); m != nil {
		out.Season, _ = strconv.Atoi(stem[m[2]:m[3]])
		out.HasSeason = true
		out.Episode, _ = strconv.Atoi(stem[m[4]:m[5]])
		out.HasEpisode = true
		out.ExplicitSE = true
		out.Title = cleanTitle(stem[:m[0]])
		return out
	}

	// E02 / EP02
	if m := epNumRegex.FindStringSubmatchIndex(stem); m != nil {
		out.Episode, _ = strconv.Atoi(stem[m[2]:m[3]])
		out.HasEpisode = true
		out.Title = cleanTitle(stem[:m[0]])
		return out
	}

	// 第xx集/话/回
	if m := epCNRegex.FindStringSubmatchIndex(stem); m != nil {
		if e := ChineseToInt(stem[m[2]:m[3]]); e > 0 {
			out.Episode = e
			out.HasEpisode = true
			out.Title = cleanTitle(stem[:m[0]])
			return out
		}
	}

	if !rangeContainer {
		// 开头的纯数字，如 "01.mp4" / "002 4K.mkv"
		if m := leadNumRegex.FindStringSubmatch(stem); m != nil {
			if e, _ := strconv.Atoi(m[1]); likelyEpisode(e) {
				out.Episode = e
				out.HasEpisode = true
				return out
			}
		}
		// 独立数字 token，如 "暗河传 28 4K"
		for _, m := range bareNumRegex.FindAllStringSubmatch(stem, -1) {
			e, _ := strconv.Atoi(m[1])
			if likelyEpisode(e) {
				out.Episode = e
				out.HasEpisode = true
				out.Title = cleanTitle(strings.SplitN(stem, m[1], 2)[0])
				break
			}
		}
	}

	if out.Title == "" {
		out.Title = cleanTitle(stem)
	}
	return out
}

func noiseHits(name string, extra []string) []string {
	low := strings.ToLower(ToHalfwidth(name))
	var hits []string
	for _, m := range defaultNoiseMarkers {
		if strings.Contains(low, strings.ToLower(m)) {
			hits = append(hits, m)
		}
	}
	for _, m := range extra {
		if m != "" && strings.Contains(low, strings.ToLower(m)) {
			hits = append(hits, m)
		}
	}
	return hits
}

// 1..200 之间才当集数，排除年份和分辨率数字
func likelyEpisode(n int) bool {
	return n >= 1 && n <= 200
}

var bareSERegex = regexp.MustCompile(`(?i)^(?:S\d{1,2}\s*E\d{1,3}|\d{1,2}\s*[xX]\s*\d{1,3})\b`)

// NeedsSeriesPrefix 判断裸 "S01E05.mkv" / "1x02.mkv" 这类不带剧名的文件。
// 它们虽然已有明确集数标记，仍要补上剧名前缀才能被媒体库识别。
func NeedsSeriesPrefix(name, title string) bool {
	if name == "" || title == "" {
		return false
	}
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.TrimSpace(leadingTagRegex.ReplaceAllString(stem, ""))
	if strings.Contains(strings.ToLower(stem), strings.ToLower(title)) {
		return false
	}
	return bareSERegex.MatchString(stem)
}

var (
	trailParenRegex   = regexp.MustCompile(`\s*\([^)]*\)$`)
	trailBracketRegex = regexp.MustCompile(`\s*\[[^\]]*\]$`)
)

func cleanTitle(raw string) string {
	s := NormalizeSpaces(raw)
	s = trailParenRegex.ReplaceAllString(s, "")
	s = trailBracketRegex.ReplaceAllString(s, "")
	s = strings.Trim(s, "-_. ")
	// 去掉残留的质量词，标题片段只用于搜索
	for _, re := range qualityPatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return NormalizeSpaces(s)
}

package parser

import (
	"regexp"
	"strconv"
)

var (
	// "S1-S4" / "1-4季" 这类是打包目录，不是单季
	seasonRangeSRegex  = regexp.MustCompile(`(?i)\bS\d{1,2}\s*[-~—–]\s*S?\d{1,2}\b`)
	seasonRangeCNRegex = regexp.MustCompile(`(?:第\s*)?\d{1,2}\s*[-~—–]\s*\d{1,2}\s*季`)

	// 独立的 S1 / S01 / 安多S1，但不匹配 S01E02
	seasonSRegex      = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])S(\d{1,2})(?:$|[^A-Za-z0-9])`)
	seasonWordRegex   = regexp.MustCompile(`(?i)\bSeason\s*(\d{1,2})\b`)
	seasonCNRegex     = regexp.MustCompile(`第\s*([一二三四五六七八九十\d]+)\s*季`)
	seasonCNBareRegex = regexp.MustCompile(`(?:^|\D)(\d{1,2})\s*季`)
	seasonCNPartRegex = regexp.MustCompile(`第\s*([一二三四五六七八九十\d]+)\s*部`)
)

// ParseSeason 从文件夹名或文件名解析季度号。
// 返回 (season, ok)；ok=false 表示没有可信的单季标记。
// 识别顺序与首个明确标记优先：Sxx、Season N、第N季、N季、第N部。
func ParseSeason(text string) (int, bool) {
	t := NormalizeSpaces(ToHalfwidth(text))
	if t == "" {
		return 0, false
	}
	if IsSeasonRange(t) {
		return 0, false
	}

	if m := seasonSRegex.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := seasonWordRegex.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := seasonCNRegex.FindStringSubmatch(t); m != nil {
		if n := ChineseToInt(m[1]); n > 0 {
			return n, true
		}
	}
	if m := seasonCNBareRegex.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return n, true
		}
	}
	if m := seasonCNPartRegex.FindStringSubmatch(t); m != nil {
		if n := ChineseToInt(m[1]); n > 0 {
			return n, true
		}
	}
	return 0, false
}

// IsSeasonRange 判断是否季打包目录名，如 "S1-S3"、"1-4季"
func IsSeasonRange(text string) bool {
	t := ToHalfwidth(text)
	return seasonRangeSRegex.MatchString(t) || seasonRangeCNRegex.MatchString(t)
}

// SeasonDirName 规范季目录名。Emby 把 Season 0 识别为 Specials。
func SeasonDirName(season int) string {
	if season == 0 {
		return "Specials"
	}
	return "S" + pad2(season)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

package parser

import (
	"regexp"
	"strings"
)

// 质量标记识别保持固定词表；未识别的尾部 token 原样保留给调用方。
var qualityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b4k\b`),
	regexp.MustCompile(`(?i)\b8k\b`),
	regexp.MustCompile(`(?i)\b2160p\b`),
	regexp.MustCompile(`(?i)\b1440p\b`),
	regexp.MustCompile(`(?i)\b1080p\b`),
	regexp.MustCompile(`(?i)\b720p\b`),
	regexp.MustCompile(`(?i)\bhdr10\+?\b`),
	regexp.MustCompile(`(?i)\bhdr\b`),
	regexp.MustCompile(`(?i)dolby\s*vision`),
	regexp.MustCompile(`(?i)\bdovi\b`),
	regexp.MustCompile(`(?i)\bdv\b`),
	regexp.MustCompile(`(?i)\buhd\b`),
	regexp.MustCompile(`(?i)web[-_. ]?dl`),
	regexp.MustCompile(`(?i)\bwebrip\b`),
	regexp.MustCompile(`(?i)\bbluray\b`),
	regexp.MustCompile(`(?i)\bbdrip\b`),
	regexp.MustCompile(`(?i)\bremux\b`),
	regexp.MustCompile(`(?i)\bhevc\b`),
	regexp.MustCompile(`(?i)\bx26[45]\b`),
	regexp.MustCompile(`(?i)\bh26[45]\b`),
	regexp.MustCompile(`(?i)\btruehd\b`),
	regexp.MustCompile(`(?i)dts[- ]?hd`),
	regexp.MustCompile(`(?i)\bdts\b`),
	regexp.MustCompile(`(?i)\baac\b`),
	regexp.MustCompile(`(?i)\batmos\b`),
	regexp.MustCompile(`(?i)\b10bit\b`),
	regexp.MustCompile(`中字`),
	regexp.MustCompile(`双语`),
	regexp.MustCompile(`国语`),
	regexp.MustCompile(`粤语`),
	regexp.MustCompile(`杜比视界`),
	regexp.MustCompile(`高码`),
}

// 大小写归一，如 4k -> 4K、webdl -> WEB-DL。分辨率保持小写 p。
var qualityCanonical = map[string]string{
	"4k":          "4K",
	"8k":          "8K",
	"uhd":         "UHD",
	"hdr":         "HDR",
	"hdr10":       "HDR10",
	"hdr10+":      "HDR10+",
	"dv":          "DV",
	"dovi":        "DV",
	"dolbyvision": "DolbyVision",
	"webdl":       "WEB-DL",
	"web-dl":      "WEB-DL",
	"webrip":      "WEBRip",
	"bluray":      "BluRay",
	"bdrip":       "BDRip",
	"remux":       "Remux",
	"hevc":        "HEVC",
	"x264":        "x264",
	"x265":        "x265",
	"h264":        "H264",
	"h265":        "H265",
	"truehd":      "TrueHD",
	"dtshd":       "DTS-HD",
	"dts-hd":      "DTS-HD",
	"dts":         "DTS",
	"aac":         "AAC",
	"atmos":       "Atmos",
	"10bit":       "10bit",
	"杜比视界":        "DV",
	"高码":          "HiBitrate",
}

// QualityTokens 按出现顺序提取质量标记并去重，casing 归一。
func QualityTokens(text string) []string {
	t := NormalizeSpaces(ToHalfwidth(text))
	type hit struct {
		pos int
		tok string
	}
	var hits []hit
	for _, re := range qualityPatterns {
		loc := re.FindStringIndex(t)
		if loc == nil {
			continue
		}
		raw := t[loc[0]:loc[1]]
		hits = append(hits, hit{loc[0], canonicalQuality(raw)})
	}
	// 保持原始出现顺序
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].pos > hits[j].pos; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
	seen := map[string]bool{}
	var out []string
	for _, h := range hits {
		if seen[h.tok] {
			continue
		}
		seen[h.tok] = true
		out = append(out, h.tok)
	}
	return out
}

func canonicalQuality(raw string) string {
	key := strings.ToLower(strings.ReplaceAll(NormalizeSpaces(raw), " ", ""))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, ".", "")
	if c, ok := qualityCanonical[key]; ok {
		return c
	}
	// 2160p/1080p 等保持小写 p
	if resNumRegex.MatchString(key) {
		return strings.ToLower(raw)
	}
	return raw
}

var resNumRegex = regexp.MustCompile(`(?i)^(4320|2160|1440|1080|720|576|540|480)p$`)
var resFindRegex = regexp.MustCompile(`(?i)\b(4320|2160|1440|1080|720|576|540|480)p\b`)

// ExtractResolution 返回规范分辨率串，如 "2160p"。
// 只有 4K/UHD、8K 这类提示时映射到对应 p 值；都没有返回空串。
func ExtractResolution(text string) string {
	t := ToHalfwidth(text)
	if m := resFindRegex.FindStringSubmatch(t); m != nil {
		return strings.ToLower(m[1] + "p")
	}
	low := strings.ToLower(t)
	if strings.Contains(low, "8k") {
		return "4320p"
	}
	if strings.Contains(low, "4k") || strings.Contains(low, "uhd") {
		return "2160p"
	}
	return ""
}

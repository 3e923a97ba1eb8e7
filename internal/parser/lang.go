package parser

import (
	"path"
	"regexp"
	"strings"
)

var commonLangs = map[string]bool{
	"en": true, "zh": true, "ja": true, "ko": true, "fr": true, "de": true,
	"es": true, "it": true, "ru": true, "pt": true, "ar": true, "th": true,
	"vi": true, "id": true,
}

var langAliases = map[string]string{
	"eng": "en",
	"chs": "chs", "sc": "chs", "zh-cn": "chs", "zh-hans": "chs", "gb": "chs", "简体": "chs", "简中": "chs",
	"cht": "cht", "tc": "cht", "zh-tw": "cht", "zh-hant": "cht", "big5": "cht", "繁体": "cht", "繁中": "cht",
	"chi": "zh", "zho": "zh",
	"jpn": "ja", "jp": "ja",
	"kor": "ko", "kr": "ko",
	"spa": "es", "fra": "fr", "deu": "de", "ita": "it", "rus": "ru", "por": "pt",
	"pt-br": "pt-br", "ptbr": "pt-br",
	"ara": "ar",
}

// 不按 "-" 切，pt-br / zh-cn 这类带连字符的语言码要保留
var langSplitRegex = regexp.MustCompile(`[\s._\[\](){}]+`)

// SubtitleLang 从字幕文件名里提取语言码和 forced/sdh 标记。
// 返回空串表示没识别出语言。
func SubtitleLang(filename string) (lang string, flags []string) {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	low := strings.ToLower(base)

	if strings.Contains(low, "forced") || strings.Contains(low, "forc") {
		flags = append(flags, "forced")
	}
	toks := langSplitRegex.Split(low, -1)
	for _, t := range toks {
		if t == "sdh" || t == "cc" || t == "hi" {
			flags = append(flags, "sdh")
			break
		}
	}

	// 中文提示优先
	switch {
	case strings.Contains(base, "简体") || strings.Contains(base, "简中"):
		return "chs", flags
	case strings.Contains(base, "繁体") || strings.Contains(base, "繁中"):
		return "cht", flags
	case strings.Contains(base, "中英") || strings.Contains(base, "双语"):
		// 双语内封按中文处理，避免和英文字幕撞名
		return "chs", flags
	}

	for _, t := range toks {
		t = strings.Trim(t, "-")
		if t == "" {
			continue
		}
		if l, ok := langAliases[t]; ok {
			return l, flags
		}
		if commonLangs[t] {
			return t, flags
		}
		// en-us 之类取主语言
		if len(t) == 5 && t[2] == '-' && commonLangs[t[:2]] {
			return t[:2], flags
		}
	}
	return "", flags
}

// SidecarName 按最终视频 stem 生成字幕名，语言码放在扩展名前。
// 如 "Show - S01E01" + "xx.chs.srt" -> "Show - S01E01.chs.srt"
func SidecarName(videoStem, oldName string) string {
	ext := strings.ToLower(path.Ext(oldName))
	if !subtitleExts[ext] {
		return videoStem + ext
	}
	lang, flags := SubtitleLang(oldName)
	parts := []string{videoStem}
	if lang != "" {
		parts = append(parts, lang)
	}
	for _, f := range []string{"forced", "sdh"} {
		for _, got := range flags {
			if got == f {
				parts = append(parts, f)
				break
			}
		}
	}
	return strings.Join(parts, ".") + ext
}

package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	spacesRegex   = regexp.MustCompile(`\s+`)
	unsafeRegex   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	yearHintRegex = regexp.MustCompile(`(19\d{2}|20\d{2})`)
)

// NormalizeSpaces 把所有空白(含全角空格等)折叠成单个空格
func NormalizeSpaces(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(spacesRegex.ReplaceAllString(s, " "))
}

// ToHalfwidth 全角字符转半角，保证 '４Ｋ'、'Ｓ０１' 这类名字可以被解析
func ToHalfwidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == 0x3000: // 全角空格
			b.WriteRune(' ')
		case ch >= 0xFF01 && ch <= 0xFF5E: // 全角 ASCII
			b.WriteRune(ch - 0xFEE0)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

var cnDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9, '十': 10,
}

// ChineseToInt 解析 1-99 的中文数字 (十二、二十、二十一...)，
// 也接受纯阿拉伯数字。解析失败返回 0。
func ChineseToInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	runes := []rune(s)
	if len(runes) == 1 && runes[0] == '十' {
		return 10
	}
	if len(runes) == 2 && runes[0] == '十' {
		if d, ok := cnDigits[runes[1]]; ok {
			return 10 + d
		}
		return 0
	}
	if len(runes) == 2 && runes[1] == '十' {
		if d, ok := cnDigits[runes[0]]; ok {
			return d * 10
		}
		return 0
	}
	if len(runes) == 3 && runes[1] == '十' {
		a, okA := cnDigits[runes[0]]
		c, okC := cnDigits[runes[2]]
		if okA && okC {
			return a*10 + c
		}
		return 0
	}
	// 逐位拼接，如 "二零二三" 不是目标场景，保守处理
	total := 0
	for _, r := range runes {
		d, ok := cnDigits[r]
		if !ok {
			return 0
		}
		total = total*10 + d
	}
	return total
}

// SafeFilename 去掉远端不允许的文件名字符
func SafeFilename(name string) string {
	return strings.TrimSpace(unsafeRegex.ReplaceAllString(name, " "))
}

// ExtractYear 从文本中取一个可信的年份 (1900-2099)，没有则返回 0
func ExtractYear(s string) int {
	m := yearHintRegex.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

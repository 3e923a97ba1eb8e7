package resolver

import (
	"strings"
	"unicode"
)

// levenshtein 经典 DP，按 rune 计算，两行滚动数组。
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// normalizeForMatch 比较前的归一：小写、去标点和空白。
// 中英混排的剧名标点差异很大，只留字母数字和汉字。
func normalizeForMatch(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity 返回 [0,1]，1 为完全一致。
func Similarity(a, b string) float64 {
	na, nb := normalizeForMatch(a), normalizeForMatch(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	// 一方完全包含另一方时给高分，"鬼吹灯之龙岭迷窟" vs "龙岭迷窟"
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	d := levenshtein(na, nb)
	longer := len([]rune(na))
	if l := len([]rune(nb)); l > longer {
		longer = l
	}
	return 1 - float64(d)/float64(longer)
}

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtitleLang(t *testing.T) {
	cases := []struct {
		Name  string
		Lang  string
		Flags []string
	}{
		{"Show.S01E01.chs.srt", "chs", nil},
		{"Show.S01E01.CHT.ass", "cht", nil},
		{"Show.S01E01.简体.srt", "chs", nil},
		{"Show.S01E01.中英双语.ass", "chs", nil},
		{"Show.S01E01.en.srt", "en", nil},
		{"Show.S01E01.en.forced.srt", "en", []string{"forced"}},
		{"Show.S01E01.en.sdh.srt", "en", []string{"sdh"}},
		{"Show.S01E01.pt-br.srt", "pt-br", nil},
		{"Show.S01E01.en-us.srt", "en", nil},
		{"Show.S01E01.srt", "", nil},
	}
	for _, c := range cases {
		lang, flags := SubtitleLang(c.Name)
		assert.Equal(t, c.Lang, lang, c.Name)
		assert.Equal(t, c.Flags, flags, c.Name)
	}
}

func TestSidecarName(t *testing.T) {
	stem := "Some Show - S01E02"
	cases := []struct {
		Old  string
		Want string
	}{
		{"whatever.chs.srt", "Some Show - S01E02.chs.srt"},
		{"ep02.繁体.ass", "Some Show - S01E02.cht.ass"},
		{"ep02.en.forced.srt", "Some Show - S01E02.en.forced.srt"},
		{"nolang.srt", "Some Show - S01E02.srt"},
	}
	for _, c := range cases {
		assert.Equal(t, c.Want, SidecarName(stem, c.Old))
	}
}

package parser

import (
	"testing"
)

func TestParse_ExplicitSxxEyy(t *testing.T) {
	cases := []struct {
		Name    string
		Season  int
		Episode int
	}{
		{"Beyond.Evil.S01E03.1080p.WEB-DL.mkv", 1, 3},
		{"安多S1E10.mp4", 1, 10},
		{"Silo S02 E05 2160p DV.mkv", 2, 5},
		{"[Group] Show - 2x07.mkv", 2, 7},
	}
	for _, c := range cases {
		p := Parse(c.Name)
		if !p.ExplicitSE {
			t.Errorf("%s: expected explicit SxxEyy", c.Name)
		}
		if !p.HasSeason || p.Season != c.Season {
			t.Errorf("%s: season = %d, want %d", c.Name, p.Season, c.Season)
		}
		if !p.HasEpisode || p.Episode != c.Episode {
			t.Errorf("%s: episode = %d, want %d", c.Name, p.Episode, c.Episode)
		}
	}
}

func TestParse_EpisodeRange(t *testing.T) {
	p := Parse("Show.S01E01-E03.mkv")
	if !p.IsRange() {
		t.Fatalf("expected range, got %+v", p)
	}
	if p.Episode != 1 || p.EpisodeEnd != 3 {
		t.Errorf("range = E%d-E%d, want E1-E3", p.Episode, p.EpisodeEnd)
	}
}

func TestParse_ChineseEpisode(t *testing.T) {
	cases := []struct {
		Name    string
		Episode int
	}{
		{"第12集.mp4", 12},
		{"第十集.mkv", 10},
		{"某剧 第3话.mp4", 3},
	}
	for _, c := range cases {
		p := Parse(c.Name)
		if !p.HasEpisode || p.Episode != c.Episode {
			t.Errorf("%s: episode = %d (has=%v), want %d", c.Name, p.Episode, p.HasEpisode, c.Episode)
		}
		if p.ExplicitSE {
			t.Errorf("%s: should not count as explicit SxxEyy", c.Name)
		}
	}
}

func TestParse_BareNumbers(t *testing.T) {
	p := Parse("01.mp4")
	if !p.HasEpisode || p.Episode != 1 {
		t.Fatalf("01.mp4: got %+v", p)
	}
	p = Parse("暗河传 28 4K.mp4")
	if !p.HasEpisode || p.Episode != 28 {
		t.Fatalf("standalone number: got %+v", p)
	}
	// 年份不是集数
	p = Parse("龙岭迷窟 2020.mp4")
	if p.HasEpisode {
		t.Errorf("year should not parse as episode: %+v", p)
	}
}

func TestParse_SeasonRangeContainer(t *testing.T) {
	for _, name := range []string{"S1-S3", "1-4季", "浴血黑帮1-6季 合集"} {
		p := Parse(name)
		if p.HasSeason {
			t.Errorf("%s: season ranges must not resolve to a single season", name)
		}
		if p.HasEpisode {
			t.Errorf("%s: container numbers must not become episodes", name)
		}
	}
}

func TestParse_NoiseOverridesValidSE(t *testing.T) {
	p := Parse("Some.Show.S04E26.www.xxx.com.mp4")
	if !p.ExplicitSE {
		t.Fatal("expected SxxEyy to still parse")
	}
	if !p.MustRewrite() {
		t.Fatal("noise flag must force a rewrite even with valid SxxEyy")
	}
}

func TestParse_QualityNormalization(t *testing.T) {
	p := Parse("Show.第4季.26.4k.hdr.mp4")
	want := map[string]bool{"4K": true, "HDR": true}
	for _, q := range p.Quality {
		if !want[q] {
			t.Errorf("unexpected quality token %q", q)
		}
		delete(want, q)
	}
	if len(want) > 0 {
		t.Errorf("missing quality tokens: %v (got %v)", want, p.Quality)
	}
}

func TestParse_FirstSeasonTokenWins(t *testing.T) {
	p := Parse("S02 第四季 E01.mkv")
	if !p.HasSeason || p.Season != 2 {
		t.Errorf("season = %d, want first token 2", p.Season)
	}
}

func TestChineseToInt(t *testing.T) {
	cases := map[string]int{
		"三": 3, "十": 10, "十二": 12, "二十": 20, "二十一": 21, "4": 4, "两": 2,
	}
	for in, want := range cases {
		if got := ChineseToInt(in); got != want {
			t.Errorf("ChineseToInt(%q) = %d, want %d", in, got, want)
		}
	}
	if got := ChineseToInt("abc"); got != 0 {
		t.Errorf("invalid input should return 0, got %d", got)
	}
}

func TestToHalfwidth(t *testing.T) {
	if got := ToHalfwidth("４Ｋ　Ｓ０１"); got != "4K S01" {
		t.Errorf("ToHalfwidth = %q", got)
	}
}

func TestExtractResolution(t *testing.T) {
	cases := map[string]string{
		"Show 2160p DV":  "2160p",
		"老剧 4K高码":        "2160p",
		"something 8K":   "4320p",
		"Show 1080P":     "1080p",
		"no resolution":  "",
	}
	for in, want := range cases {
		if got := ExtractResolution(in); got != want {
			t.Errorf("ExtractResolution(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNeedsSeriesPrefix(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  bool
	}{
		{"S01E05.mkv", "My Show", true},
		{"[Grp] S01E05.mkv", "My Show", true},
		{"1x02.mkv", "My Show", true},
		{"My Show S01E05.mkv", "My Show", false},
		{"My.Show.S01E05.1080p.mkv", "My Show", false}, // 不在开头就不算裸名
		{"第2集.mp4", "My Show", false},
		{"S01E05.mkv", "", false},
	}
	for _, c := range cases {
		if got := NeedsSeriesPrefix(c.name, c.title); got != c.want {
			t.Errorf("NeedsSeriesPrefix(%q, %q) = %v, want %v", c.name, c.title, got, c.want)
		}
	}
}

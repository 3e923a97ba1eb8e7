package resolver

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pokerjest/tvtidy/internal/assistant"
	"github.com/pokerjest/tvtidy/internal/model"
	"github.com/pokerjest/tvtidy/internal/parser"
	"github.com/pokerjest/tvtidy/internal/tmdb"
)

// Searcher 元数据查询端 (生产环境是 TMDB)
type Searcher interface {
	SearchTV(ctx context.Context, query string, year int) ([]tmdb.TVShow, error)
}

// Cleaner 辅助清洗端，nil 表示未启用
type Cleaner interface {
	CleanTitle(ctx context.Context, dirName string, samples []string) (*assistant.Guess, error)
}

// Resolver 把剧根目录名解析成规范身份。
// 命中顺序: 已规范 -> 跨运行缓存 -> 元数据搜索 -> 辅助清洗后再搜一次。
type Resolver struct {
	search    Searcher
	clean     Cleaner
	db        *gorm.DB // nil 表示无持久缓存
	threshold float64
	log       *logrus.Entry

	mu   sync.Mutex
	memo map[string]model.ShowIdentity
}

func New(search Searcher, clean Cleaner, database *gorm.DB, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = 0.72
	}
	return &Resolver{
		search:    search,
		clean:     clean,
		db:        database,
		threshold: threshold,
		log:       logrus.WithField("component", "resolver"),
		memo:      make(map[string]model.ShowIdentity),
	}
}

var canonicalRegex = regexp.MustCompile(`^(.{1,80}) \((\d{4})\)$`)

// alreadyCanonical "Title (Year)" 且不带噪声/画质标记的目录名直接信任，
// 不打 API。
func alreadyCanonical(name string) (model.ShowIdentity, bool) {
	m := canonicalRegex.FindStringSubmatch(name)
	if m == nil {
		return model.ShowIdentity{}, false
	}
	p := parser.Parse(name)
	if p.MustRewrite() || len(p.Quality) > 0 {
		return model.ShowIdentity{}, false
	}
	return model.ShowIdentity{
		Title:  m[1],
		Year:   parser.ExtractYear(m[2]),
		Source: model.SourceAlreadyCanonical,
	}, true
}

// Resolve 解析一个剧根目录。samples 是根下若干文件名，给辅助清洗当线索。
// 返回 Source=unresolved 而 err=nil 表示查过但没有可信命中。
func (r *Resolver) Resolve(ctx context.Context, dirName string, samples []string) (model.ShowIdentity, error) {
	name := parser.NormalizeSpaces(parser.ToHalfwidth(strings.TrimSpace(dirName)))
	if id, ok := alreadyCanonical(name); ok {
		return id, nil
	}

	key := queryKey(name)
	r.mu.Lock()
	if id, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	if id, ok := r.fromCache(key); ok {
		r.remember(key, id)
		return id, nil
	}

	p := parser.Parse(name)
	query := p.Title
	if query == "" {
		query = name
	}
	year := parser.ExtractYear(name)
	// 年份单独作为过滤条件，不留在查询串里
	if year > 0 {
		query = strings.Replace(query, strconv.Itoa(year), " ", 1)
		query = parser.NormalizeSpaces(strings.Trim(query, "-_()[] "))
	}

	id, err := r.lookup(ctx, query, year, model.SourceMetadataLookup)
	if err != nil {
		return model.ShowIdentity{Source: model.SourceUnresolved}, err
	}

	// 没命中再让助手清洗一次标题重查
	if !id.Resolved() && r.clean != nil {
		guess, gerr := r.clean.CleanTitle(ctx, dirName, samples)
		if gerr != nil {
			r.log.WithError(gerr).WithField("dir", dirName).Warn("assistant cleanup failed")
		} else if guess.Title != "" && queryKey(guess.Title) != queryKey(query) {
			y := guess.Year
			if y == 0 {
				y = year
			}
			id, err = r.lookup(ctx, guess.Title, y, model.SourceAssistantLookup)
			if err != nil {
				return model.ShowIdentity{Source: model.SourceUnresolved}, err
			}
		}
	}

	r.remember(key, id)
	if id.Resolved() {
		r.persist(key, id)
	}
	return id, nil
}

// lookup 只搜一次并打分。年份不做 API 过滤 (目录里的年份常是错的)，
// 只在 pickBest 里当加成，这样每个根至多一次搜索。
func (r *Resolver) lookup(ctx context.Context, query string, year int, source model.ResolutionSource) (model.ShowIdentity, error) {
	shows, err := r.search.SearchTV(ctx, query, 0)
	if err != nil {
		return model.ShowIdentity{Source: model.SourceUnresolved}, err
	}

	best, score := pickBest(shows, query, year)
	if best == nil || score < r.threshold {
		r.log.WithFields(logrus.Fields{"query": query, "score": score}).Debug("no confident match")
		return model.ShowIdentity{Source: model.SourceUnresolved}, nil
	}

	title := best.Name
	if title == "" {
		title = best.OriginalName
	}
	return model.ShowIdentity{
		Title:  parser.SafeFilename(title),
		Year:   best.Year(),
		Source: source,
	}, nil
}

// pickBest 相似度 + 年份加成，平分时按热度。
func pickBest(shows []tmdb.TVShow, query string, year int) (*tmdb.TVShow, float64) {
	type scored struct {
		show  tmdb.TVShow
		score float64
	}
	var all []scored
	for _, s := range shows {
		sim := Similarity(query, s.Name)
		if o := Similarity(query, s.OriginalName); o > sim {
			sim = o
		}
		if year > 0 && s.Year() == year {
			sim += 0.1
			if sim > 1 {
				sim = 1
			}
		}
		all = append(all, scored{s, sim})
	}
	if len(all) == 0 {
		return nil, 0
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].show.Popularity > all[j].show.Popularity
	})
	return &all[0].show, all[0].score
}

func (r *Resolver) remember(key string, id model.ShowIdentity) {
	r.mu.Lock()
	r.memo[key] = id
	r.mu.Unlock()
}

func (r *Resolver) fromCache(key string) (model.ShowIdentity, bool) {
	if r.db == nil {
		return model.ShowIdentity{}, false
	}
	var row model.ResolvedShow
	err := r.db.Where("query_key = ?", key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.WithError(err).Warn("resolve cache read failed")
		}
		return model.ShowIdentity{}, false
	}
	return model.ShowIdentity{
		Title:  row.Title,
		Year:   row.Year,
		Source: model.SourceMetadataLookup,
	}, true
}

// persist 只存成功解析，unresolved 下次还要再试
func (r *Resolver) persist(key string, id model.ShowIdentity) {
	if r.db == nil {
		return
	}
	row := model.ResolvedShow{QueryKey: key, Title: id.Title, Year: id.Year}
	if err := r.db.Where("query_key = ?", key).FirstOrCreate(&row).Error; err != nil {
		r.log.WithError(err).Warn("resolve cache write failed")
	}
}

func queryKey(s string) string {
	return normalizeForMatch(s)
}

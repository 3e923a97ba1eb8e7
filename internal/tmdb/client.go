package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pokerjest/tvtidy/internal/config"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

type Client struct {
	client   *resty.Client
	language string
}

func NewClient(cfg config.TMDBConfig) *Client {
	c := resty.New()
	c.SetBaseURL(DefaultBaseURL)
	c.SetTimeout(10 * time.Second)
	c.SetQueryParam("api_key", cfg.APIKey)

	lang := cfg.Language
	if lang == "" {
		lang = "zh-CN"
	}
	return &Client{client: c, language: lang}
}

// 测试用
func (c *Client) SetBaseURL(url string) { c.client.SetBaseURL(url) }

type SearchResponse struct {
	Results []TVShow `json:"results"`
}

type TVShow struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
}

// Year 从 first_air_date 取年份，取不到返回 0
func (s TVShow) Year() int {
	if len(s.FirstAirDate) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(s.FirstAirDate[:4])
	return y
}

// SearchTV 返回全部候选，由上层打分挑选。year=0 表示不带年份过滤。
func (c *Client) SearchTV(ctx context.Context, query string, year int) ([]TVShow, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("language", c.language).
		SetQueryParam("include_adult", "false")
	if year > 0 {
		req.SetQueryParam("first_air_date_year", strconv.Itoa(year))
	}

	resp, err := req.Get("/search/tv")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TMDB Error: %s", resp.Status())
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// GetTVDetails 拉单个剧集详情 (确认译名和首播年份用)
func (c *Client) GetTVDetails(ctx context.Context, id int) (*TVShow, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("language", c.language).
		Get(fmt.Sprintf("/tv/%d", id))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TMDB Error: %s", resp.Status())
	}

	var show TVShow
	if err := json.Unmarshal(resp.Body(), &show); err != nil {
		return nil, err
	}
	return &show, nil
}

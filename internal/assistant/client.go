package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/pokerjest/tvtidy/internal/config"
)

// Client 调用任意 OpenAI 兼容的 chat completions 服务，
// 用来从乱糟糟的目录名里抠出可搜索的剧名。
type Client struct {
	http  *resty.Client
	model string
	log   *logrus.Entry
}

// New 返回 nil 表示没配 key，调用层直接跳过这一环节。
func New(cfg config.AssistantConfig) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(30 * time.Second).
			SetHeader("Authorization", "Bearer "+cfg.APIKey),
		model: cfg.Model,
		log:   logrus.WithField("component", "assistant"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `你是媒体库整理助手。给你一个网盘剧集目录名和部分文件名样本，` +
	`请提取出用于元数据搜索的剧名。只输出 JSON：{"title": "剧名", "year": 年份或0}。` +
	`去掉画质、字幕组、广告等标记；不确定年份就填 0。`

// Guess 是清洗结果。Year=0 表示没把握。
type Guess struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// CleanTitle 把原始目录名和文件名样本丢给模型，换一个可搜索的剧名。
func (c *Client) CleanTitle(ctx context.Context, dirName string, samples []string) (*Guess, error) {
	user := "目录名: " + dirName
	if len(samples) > 0 {
		if len(samples) > 5 {
			samples = samples[:5]
		}
		user += "\n文件样本:\n" + strings.Join(samples, "\n")
	}

	var res chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: user},
			},
			Temperature: 0,
		}).
		SetResult(&res).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("assistant: %s", resp.Status())
	}
	if res.Error != nil {
		return nil, fmt.Errorf("assistant: %s", res.Error.Message)
	}
	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("assistant: empty response")
	}

	guess, err := parseGuess(res.Choices[0].Message.Content)
	if err != nil {
		c.log.WithField("raw", res.Choices[0].Message.Content).Warn("unparseable assistant reply")
		return nil, err
	}
	if strings.TrimSpace(guess.Title) == "" {
		return nil, fmt.Errorf("assistant: empty title")
	}
	return guess, nil
}

// parseGuess 容忍模型把 JSON 包在 markdown 代码块或闲聊里。
func parseGuess(raw string) (*Guess, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var g Guess
	if err := json.Unmarshal([]byte(raw[start:end+1]), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

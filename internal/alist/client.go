package alist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/pokerjest/tvtidy/internal/config"
	"github.com/pokerjest/tvtidy/internal/model"
)

// ErrNotFound 对象不存在。网盘目录缓存滞后时 alist 也会短暂报这个，
// 所以调用层会先重试再放弃。
var ErrNotFound = errors.New("alist: object not found")

// Common response wrapper
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"message"`
}

type Client struct {
	http *resty.Client
	cfg  config.AlistConfig
	log  *logrus.Entry

	mu        sync.Mutex
	token     string
	lastRead  time.Time
	lastWrite time.Time
}

func NewClient(cfg config.AlistConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.URL, "/")).
			SetTimeout(30 * time.Second),
		cfg: cfg,
		log: logrus.WithField("component", "alist"),
	}
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Token != "" {
		return c.cfg.Token, nil
	}
	if c.token != "" {
		return c.token, nil
	}

	var res struct {
		Response
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	_, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
		}).
		SetResult(&res).
		Post("/api/auth/login")
	if err != nil {
		return "", fmt.Errorf("alist login: %w", err)
	}
	if res.Code != 200 {
		return "", fmt.Errorf("alist login failed: %s", res.Msg)
	}
	c.token = res.Data.Token
	return c.token, nil
}

// throttle 给读/写各自维护最小间隔，写操作对网盘压力大，间隔更长。
func (c *Client) throttle(write bool) {
	c.mu.Lock()
	var last *time.Time
	var gap time.Duration
	if write {
		last = &c.lastWrite
		gap = time.Duration(c.cfg.WriteDelayMs) * time.Millisecond
	} else {
		last = &c.lastRead
		gap = time.Duration(c.cfg.ReadDelayMs) * time.Millisecond
	}
	wait := gap - time.Since(*last)
	*last = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// retryable 网络错误、限流和 5xx 都值得重试。
// "object not found" 也重试：网盘缓存滞后会误报，重试耗尽后按 ErrNotFound 返回。
func retryable(status int, code int, msg string, err error) bool {
	if err != nil {
		return true
	}
	if status == 429 || status >= 500 {
		return true
	}
	if code == 429 || code >= 500 {
		low := strings.ToLower(msg)
		if strings.Contains(low, "not found") || strings.Contains(low, "too many") ||
			strings.Contains(low, "storage not") || strings.Contains(low, "timeout") {
			return true
		}
	}
	return false
}

// call 发一次 fs API 请求并带指数退避重试。result 必须内嵌 Response。
func (c *Client) call(ctx context.Context, write bool, api string, body interface{}, res interface {
	status() (int, string)
}) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	attempts := c.cfg.Retries + 1
	backoff := time.Duration(c.cfg.BackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			c.log.WithFields(logrus.Fields{"api": api, "attempt": i + 1}).Warn("retrying alist call")
		}
		c.throttle(write)

		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", token).
			SetBody(body).
			SetResult(res).
			Post(api)

		httpStatus := 0
		if resp != nil {
			httpStatus = resp.StatusCode()
		}
		code, msg := res.status()
		if err == nil && httpStatus == 200 && code == 200 {
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("alist %s: %w", api, err)
		} else if strings.Contains(strings.ToLower(msg), "not found") {
			lastErr = fmt.Errorf("%w: %s", ErrNotFound, msg)
		} else {
			lastErr = fmt.Errorf("alist %s: code=%d %s", api, code, msg)
		}
		if !retryable(httpStatus, code, msg, err) {
			return lastErr
		}
	}
	return lastErr
}

func (r *Response) status() (int, string) { return r.Code, r.Msg }

type listResult struct {
	Response
	Data struct {
		Content []struct {
			Name     string    `json:"name"`
			Size     int64     `json:"size"`
			IsDir    bool      `json:"is_dir"`
			Modified time.Time `json:"modified"`
		} `json:"content"`
		Total int `json:"total"`
	} `json:"data"`
}

// List 翻页拉完一个目录。refresh=true 让 alist 绕过自身缓存读网盘。
func (c *Client) List(ctx context.Context, dir string) ([]model.Entry, error) {
	var all []model.Entry
	for page := 1; ; page++ {
		var res listResult
		err := c.call(ctx, false, "/api/fs/list", map[string]interface{}{
			"path":     dir,
			"page":     page,
			"per_page": c.cfg.PageSize,
			"refresh":  page == 1,
		}, &res)
		if err != nil {
			return nil, err
		}
		for _, it := range res.Data.Content {
			all = append(all, model.Entry{
				Path:     joinPath(dir, it.Name),
				Name:     it.Name,
				IsDir:    it.IsDir,
				Size:     it.Size,
				Modified: it.Modified,
			})
		}
		if len(all) >= res.Data.Total || len(res.Data.Content) == 0 {
			return all, nil
		}
	}
}

// Rename 同目录改名
func (c *Client) Rename(ctx context.Context, path, newName string) error {
	var res Response
	return c.call(ctx, true, "/api/fs/rename", map[string]interface{}{
		"path": path,
		"name": newName,
	}, &res)
}

// Move 把 names 从 srcDir 挪到 dstDir
func (c *Client) Move(ctx context.Context, srcDir, dstDir string, names []string) error {
	var res Response
	return c.call(ctx, true, "/api/fs/move", map[string]interface{}{
		"src_dir": srcDir,
		"dst_dir": dstDir,
		"names":   names,
	}, &res)
}

// Remove 删除 dir 下的 names
func (c *Client) Remove(ctx context.Context, dir string, names []string) error {
	var res Response
	return c.call(ctx, true, "/api/fs/remove", map[string]interface{}{
		"dir":   dir,
		"names": names,
	}, &res)
}

// Mkdir 递归建目录，已存在不算错
func (c *Client) Mkdir(ctx context.Context, path string) error {
	var res Response
	err := c.call(ctx, true, "/api/fs/mkdir", map[string]interface{}{
		"path": path,
	}, &res)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "exist") {
		return nil
	}
	return err
}

type searchResult struct {
	Response
	Data struct {
		Content []struct {
			Parent string `json:"parent"`
			Name   string `json:"name"`
			IsDir  bool   `json:"is_dir"`
			Size   int64  `json:"size"`
		} `json:"content"`
		Total int `json:"total"`
	} `json:"data"`
}

// Search 在 parent 下按关键字搜索 (需要 alist 开启索引)
func (c *Client) Search(ctx context.Context, parent, keyword string) ([]model.Entry, error) {
	var res searchResult
	err := c.call(ctx, false, "/api/fs/search", map[string]interface{}{
		"parent":   parent,
		"keywords": keyword,
		"scope":    0,
		"page":     1,
		"per_page": c.cfg.PageSize,
	}, &res)
	if err != nil {
		return nil, err
	}
	var out []model.Entry
	for _, it := range res.Data.Content {
		out = append(out, model.Entry{
			Path:  joinPath(it.Parent, it.Name),
			Name:  it.Name,
			IsDir: it.IsDir,
			Size:  it.Size,
		})
	}
	return out, nil
}

func joinPath(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}

package logui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Line 一条推给页面的日志
type Line struct {
	Seq     int64  `json:"seq"`
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Hub 固定容量的环形日志缓冲，外加一个停止标记。
// 页面轮询 Since 增量拉取；停止标记由执行器每个操作前检查。
type Hub struct {
	mu    sync.Mutex
	lines []Line
	cap   int
	next  int64
	stop  bool
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 2000
	}
	return &Hub{cap: capacity}
}

func (h *Hub) Append(level, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.lines = append(h.lines, Line{
		Seq:     h.next,
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: msg,
	})
	if len(h.lines) > h.cap {
		h.lines = h.lines[len(h.lines)-h.cap:]
	}
}

// Since 返回 seq 之后的所有行
func (h *Hub) Since(seq int64) []Line {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.lines {
		if l.Seq > seq {
			out := make([]Line, len(h.lines)-i)
			copy(out, h.lines[i:])
			return out
		}
	}
	return nil
}

func (h *Hub) RequestStop() {
	h.mu.Lock()
	h.stop = true
	h.mu.Unlock()
}

func (h *Hub) StopRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stop
}

// ResetStop 新一轮 run 开始前清掉上次的停止标记
func (h *Hub) ResetStop() {
	h.mu.Lock()
	h.stop = false
	h.mu.Unlock()
}

// Hook 把 logrus 输出旁路一份进 Hub
type Hook struct {
	Hub *Hub
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	var b strings.Builder
	b.WriteString(e.Message)

	// 字段按键排序，页面上好读
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	h.Hub.Append(e.Level.String(), b.String())
	return nil
}

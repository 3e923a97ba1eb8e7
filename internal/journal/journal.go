package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pokerjest/tvtidy/internal/model"
)

// Record 的 outcome 取值
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Record 是 journal 里的一行。成功和重试耗尽的失败都要落盘，
// undo 逆序回放时只回放成功的那些。
type Record struct {
	Time        time.Time    `json:"ts"`
	RunID       string       `json:"run_id"`
	Kind        model.OpKind `json:"kind"`
	Source      string       `json:"src"`
	Destination string       `json:"dst,omitempty"`
	Outcome     string       `json:"outcome"`
}

// Writer 追加写 JSONL，每条立即 fsync。
// journal 是 undo 的唯一依据，写失败必须让整个 run 中止。
type Writer struct {
	f   *os.File
	enc *json.Encoder
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Writer{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *Writer) Append(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeSuccess
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("journal sync: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// Read 读整个 journal。坏行直接报错，残缺的 journal 不能拿来 undo。
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

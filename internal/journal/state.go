package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// State 断点续跑用的完成标记文件，一行一个操作 ID。
// ID 由操作内容推导，同一快照重跑时已完成的操作直接跳过。
type State struct {
	path string
	f    *os.File
	done map[string]bool
}

func LoadState(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}

	done := make(map[string]bool)
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if id := strings.TrimSpace(sc.Text()); id != "" {
				done[id] = true
			}
		}
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read state: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	return &State{path: path, f: f, done: done}, nil
}

func (s *State) Done(id string) bool {
	return s.done[id]
}

func (s *State) MarkDone(id string) error {
	if s.done[id] {
		return nil
	}
	if _, err := s.f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("state append: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("state sync: %w", err)
	}
	s.done[id] = true
	return nil
}

func (s *State) Close() error {
	return s.f.Close()
}

// Clear 整个根跑完后删掉状态文件
func (s *State) Clear() error {
	s.f.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

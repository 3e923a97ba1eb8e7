package main

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pokerjest/tvtidy/internal/alist"
	"github.com/pokerjest/tvtidy/internal/assistant"
	"github.com/pokerjest/tvtidy/internal/config"
	"github.com/pokerjest/tvtidy/internal/db"
	"github.com/pokerjest/tvtidy/internal/logui"
	"github.com/pokerjest/tvtidy/internal/parser"
	"github.com/pokerjest/tvtidy/internal/planner"
	"github.com/pokerjest/tvtidy/internal/resolver"
	"github.com/pokerjest/tvtidy/internal/service"
	"github.com/pokerjest/tvtidy/internal/tmdb"
)

// app 各子命令共享的装配状态
type app struct {
	configFlag *string
	hub        *logui.Hub
	cfg        *config.Config
}

func newApp(configFlag *string) *app {
	return &app{configFlag: configFlag, hub: logui.NewHub(0)}
}

func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}
	path := ""
	if a.configFlag != nil {
		path = *a.configFlag
	}
	if err := config.LoadConfig(path); err != nil {
		return err
	}
	a.cfg = config.AppConfig

	level, err := logrus.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.AddHook(&logui.Hook{Hub: a.hub})
	return nil
}

// organizer 装配整条流水线。needDB 的命令才初始化 sqlite。
func (a *app) organizer(needDB bool) (*service.Organizer, error) {
	cfg := a.cfg

	if needDB && db.DB == nil {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			return nil, err
		}
	}

	rules := parser.Rules{ExtraNoise: cfg.Rename.ExtraNoise}
	if cfg.Rename.SkipDirRegex != "" {
		re, err := regexp.Compile(cfg.Rename.SkipDirRegex)
		if err != nil {
			return nil, fmt.Errorf("rename.skip_dir_regex: %w", err)
		}
		rules.SkipDirRegex = re
	}

	res := resolver.New(
		tmdb.NewClient(cfg.TMDB),
		cleanerOrNil(assistant.New(cfg.Assistant)),
		db.DB,
		cfg.TMDB.MatchThreshold,
	)

	return &service.Organizer{
		Alist:    alist.NewClient(cfg.Alist),
		Resolver: res,
		Options:  planner.Options{OnConflict: cfg.Rename.OnConflict, Rules: rules},
		DataDir:  "data",
		DB:       db.DB,
		Stop:     a.hub.StopRequested,
	}, nil
}

// nil 的 *assistant.Client 塞进接口就不是 nil 了，这里显式归一
func cleanerOrNil(c *assistant.Client) resolver.Cleaner {
	if c == nil {
		return nil
	}
	return c
}

// confirm 从标准输入读一行，只有 y/yes 算同意
func confirm(cmd *cobra.Command, prompt string) bool {
	cmd.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

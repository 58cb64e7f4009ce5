package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"xc-athletes/internal/config"
	"xc-athletes/internal/fetch"
	"xc-athletes/internal/ingest"
	"xc-athletes/internal/logx"
	"xc-athletes/internal/metrics"
	"xc-athletes/internal/normalize"
	"xc-athletes/internal/races"
	"xc-athletes/internal/roster"
	"xc-athletes/internal/rules"
	"xc-athletes/internal/store"
)

// app 持有各命令共用的依赖。
type app struct {
	cfg     *config.Config
	preset  rules.Preset
	http    *fetch.Client
	metrics *metrics.Manager
}

// setup 依次加载 .env、配置、规则，初始化日志与 HTTP 客户端。
func setup() (*app, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logx.Init(logx.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Locale: cfg.LogLocale, Color: cfg.LogColor})
	if path == "" {
		logx.Infof("未找到 %s，使用默认配置", configPath)
	}

	var rl *rules.Rules
	if rulesPath != "" {
		if r, err := rules.Load(rulesPath); err == nil {
			rl = r
		} else if !errors.Is(err, fs.ErrNotExist) {
			logx.Warnf("加载规则失败，使用内置规则：%v", err)
		}
	}

	cl, err := fetch.New(fetch.Options{
		BaseURL:    cfg.Upstream.BaseURL,
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		Retry:      cfg.Upstream.Retry,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	return &app{
		cfg:     cfg,
		preset:  rl.Resolve(cfg.RulesPreset),
		http:    cl,
		metrics: metrics.New(nil),
	}, nil
}

func (a *app) openStore() (*store.SQLite, error) {
	st, err := store.OpenSQLite(a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return st, nil
}

// source 按 SOURCE 配置选择 JSON bio 接口或旧版主页。
func (a *app) source() normalize.Source {
	if a.cfg.Source == "html" {
		return normalize.BioPageSource{Client: a.http, Path: a.cfg.Upstream.AthleteBioPage}
	}
	return normalize.BioAPISource{Client: a.http, Path: a.cfg.Upstream.AthleteBioAPI}
}

func (a *app) fetcher() *normalize.Fetcher {
	return &normalize.Fetcher{
		Source:     a.source(),
		Normalizer: normalize.New(a.preset),
		Metrics:    a.metrics,
	}
}

func (a *app) roster() *roster.Client {
	return &roster.Client{
		HTTP:    a.http,
		Path:    a.cfg.Upstream.RosterPage,
		Rules:   a.preset.RosterPage,
		Metrics: a.metrics,
	}
}

func (a *app) races() *races.Client {
	return &races.Client{
		HTTP: a.http,
		Paths: races.Paths{
			RaceResults:    a.cfg.Upstream.RaceResultsAPI,
			MeetEvents:     a.cfg.Upstream.MeetEventsAPI,
			MeetAllResults: a.cfg.Upstream.MeetAllResultsAPI,
		},
		LevelMask: a.cfg.Upstream.LevelMask,
		Metrics:   a.metrics,
	}
}

// runner 在给定存储上组装批量执行器。
func (a *app) runner(st ingest.Store) *ingest.Runner {
	return &ingest.Runner{
		Saver:  &ingest.Coordinator{Store: st, Fetcher: a.fetcher(), Metrics: a.metrics},
		Races:  a.races(),
		Roster: a.roster(),
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	DevTools struct {
		URL      string `yaml:"url"`
		TargetID string `yaml:"targetId"`
		Navigate string `yaml:"navigate"`
	} `yaml:"devtools"`

	Target Target `yaml:"target"`
	Page   Page   `yaml:"page"`
	Timing Timing `yaml:"timing"`
	Policy Policy `yaml:"policy"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Target 用于挑选 DevTools 标签页的 URL 匹配条件
type Target struct {
	Mode    string `yaml:"mode"`
	Pattern string `yaml:"pattern"`
}

// Page 页面选择器与错误文案
type Page struct {
	EnrollSelector    string `yaml:"enrollSelector"`
	ContainerSelector string `yaml:"containerSelector"`
	EnrolledSelector  string `yaml:"enrolledSelector"`
	CloseSelector     string `yaml:"closeSelector"`
	LabelAttribute    string `yaml:"labelAttribute"`
	ErrorText         string `yaml:"errorText"`
}

// Timing 各轮询与等待间隔
type Timing struct {
	ReadyPollInterval   time.Duration `yaml:"readyPollInterval"`
	ReadyTimeout        time.Duration `yaml:"readyTimeout"`
	ScrollSettle        time.Duration `yaml:"scrollSettle"`
	NudgeDelay          time.Duration `yaml:"nudgeDelay"`
	NudgeDistance       int           `yaml:"nudgeDistance"`
	RoundSettle         time.Duration `yaml:"roundSettle"`
	StabilityThreshold  int           `yaml:"stabilityThreshold"`
	ConfirmPollInterval time.Duration `yaml:"confirmPollInterval"`
	ConfirmPollLimit    int           `yaml:"confirmPollLimit"`
	FadePollInterval    time.Duration `yaml:"fadePollInterval"`
	FadePollLimit       int           `yaml:"fadePollLimit"`
	SettleDelay         time.Duration `yaml:"settleDelay"`
	HeartbeatInterval   time.Duration `yaml:"heartbeatInterval"`
}

// Policy 超时处理策略
type Policy struct {
	// TimeoutRetries 确认框超时后在同一周期内重新点击的次数，0 表示直接跳过
	TimeoutRetries int `yaml:"timeoutRetries"`
}

// DefaultPage 默认页面约定
func DefaultPage() Page {
	return Page{
		EnrollSelector:    `button[aria-label^="Enroll in Offer for"]`,
		ContainerSelector: "app-mo-offer-tile",
		EnrolledSelector:  `div[aria-label^="Enrolled for"]`,
		CloseSelector:     `button.modal-close-btn, button[aria-label="Close"], button[title="Close"]`,
		LabelAttribute:    "aria-label",
		ErrorText:         "Unable to enroll merchant offer. Please try again.",
	}
}

// DefaultTiming 默认时间参数
func DefaultTiming() Timing {
	return Timing{
		ReadyPollInterval:   time.Second,
		ScrollSettle:        500 * time.Millisecond,
		NudgeDelay:          200 * time.Millisecond,
		NudgeDistance:       200,
		RoundSettle:         3 * time.Second,
		StabilityThreshold:  6,
		ConfirmPollInterval: 500 * time.Millisecond,
		ConfirmPollLimit:    20,
		FadePollInterval:    500 * time.Millisecond,
		FadePollLimit:       40,
		SettleDelay:         500 * time.Millisecond,
		HeartbeatInterval:   15 * time.Second,
	}
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	cfg := &Config{
		Version: "1.0.0",
		Target: Target{
			Mode:    "glob",
			Pattern: "https://online.citi.com/US/ag/products-offers/merchantoffers*",
		},
		Page:   DefaultPage(),
		Timing: DefaultTiming(),
	}
	cfg.DevTools.URL = "http://127.0.0.1:9222"
	cfg.Sqlite.Dsn = "offerpilot.db"
	cfg.Sqlite.Prefix = "offerpilot_"
	cfg.Log.Level = "info"
	cfg.Log.Writer = []string{"console", "file"}
	cfg.Log.File = "offerpilot.log"
	return cfg
}

// Load 读取 YAML 配置文件并覆盖默认值，path 为空时直接返回默认配置
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置是否自洽
func (c *Config) Validate() error {
	if c.DevTools.URL == "" {
		return errors.New("devtools url cannot be empty")
	}
	if c.Page.EnrollSelector == "" || c.Page.CloseSelector == "" {
		return errors.New("enroll and close selectors are required")
	}
	if c.Policy.TimeoutRetries < 0 {
		return errors.New("timeout retries cannot be negative")
	}
	return c.Timing.Validate()
}

// Validate 校验时间参数
func (t Timing) Validate() error {
	if t.ReadyPollInterval <= 0 || t.ConfirmPollInterval <= 0 || t.FadePollInterval <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if t.ScrollSettle < 0 || t.NudgeDelay < 0 || t.SettleDelay < 0 || t.ReadyTimeout < 0 {
		return errors.New("delays cannot be negative")
	}
	if t.RoundSettle <= t.ScrollSettle+t.NudgeDelay {
		return fmt.Errorf("round settle %s must exceed scroll nudge delays %s", t.RoundSettle, t.ScrollSettle+t.NudgeDelay)
	}
	if t.StabilityThreshold < 0 {
		return errors.New("stability threshold cannot be negative")
	}
	if t.ConfirmPollLimit <= 0 || t.FadePollLimit <= 0 {
		return errors.New("poll limits must be positive")
	}
	return nil
}

// Scale 按比例缩放所有等待时间，轮数与上限不变
func (t Timing) Scale(f float64) Timing {
	scale := func(d time.Duration) time.Duration { return time.Duration(float64(d) * f) }
	t.ReadyPollInterval = scale(t.ReadyPollInterval)
	t.ReadyTimeout = scale(t.ReadyTimeout)
	t.ScrollSettle = scale(t.ScrollSettle)
	t.NudgeDelay = scale(t.NudgeDelay)
	t.RoundSettle = scale(t.RoundSettle)
	t.ConfirmPollInterval = scale(t.ConfirmPollInterval)
	t.FadePollInterval = scale(t.FadePollInterval)
	t.SettleDelay = scale(t.SettleDelay)
	return t
}

package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"offerpilot/pkg/model"
)

// 匹配模式
const (
	ModeExact  = "exact"
	ModePrefix = "prefix"
	ModeRegex  = "regex"
	ModeGlob   = "glob"
)

// Matcher 按 URL 条件挑选 DevTools 目标
type Matcher struct {
	mode    string
	pattern string
}

// New 创建匹配器，mode 为空时按 glob 处理
func New(mode, pattern string) (*Matcher, error) {
	if mode == "" {
		mode = ModeGlob
	}
	switch mode {
	case ModeExact, ModePrefix, ModeGlob:
	case ModeRegex:
		if _, err := regexCache.Get(pattern); err != nil {
			return nil, fmt.Errorf("compile target pattern: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}
	return &Matcher{mode: mode, pattern: pattern}, nil
}

// Match 判断 URL 是否满足条件，空模式匹配所有
func (m *Matcher) Match(url string) bool {
	if m == nil || m.pattern == "" {
		return true
	}
	switch m.mode {
	case ModePrefix:
		return strings.HasPrefix(url, m.pattern)
	case ModeRegex:
		return matchRegex(url, m.pattern)
	case ModeExact:
		return url == m.pattern
	default:
		return glob(url, m.pattern)
	}
}

// Select 返回第一个匹配的页面类型目标
func (m *Matcher) Select(targets []model.TargetInfo) (model.TargetInfo, bool) {
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if m.Match(t.URL) {
			return t, true
		}
	}
	return model.TargetInfo{}, false
}

func matchRegex(s, pattern string) bool {
	re, err := regexCache.Get(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// glob 支持任意位置的 *，与用户脚本的 @match 写法一致
func glob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return s == pattern
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, p := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, p)
		if idx < 0 {
			return false
		}
		s = s[idx+len(p):]
	}
	return strings.HasSuffix(s, last)
}

type reCache struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}

var regexCache = &reCache{m: make(map[string]*regexp.Regexp)}

func (c *reCache) Get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.m[pattern] = re
	return re, nil
}

package cdp

import (
	"encoding/json"
	"fmt"

	"offerpilot/pkg/model"

	"github.com/mafredri/cdp/devtool"
	"github.com/tidwall/gjson"
)

// ToCandidates 将页面脚本返回的数组转换为候选项
func ToCandidates(raw json.RawMessage) ([]model.Candidate, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid candidate payload: %q", truncate(raw))
	}
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.Null {
		return []model.Candidate{}, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("candidate payload is not an array: %q", truncate(raw))
	}
	out := make([]model.Candidate, 0, len(res.Array()))
	res.ForEach(func(_, v gjson.Result) bool {
		out = append(out, model.Candidate{
			Label:    v.Get("label").String(),
			Enrolled: v.Get("enrolled").Bool(),
		})
		return true
	})
	return out, nil
}

// ToBool 解析布尔返回值
func ToBool(raw json.RawMessage) (bool, error) {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.True:
		return true, nil
	case gjson.False, gjson.Null:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %q", truncate(raw))
	}
}

// ToString 解析字符串返回值，null 视为空串
func ToString(raw json.RawMessage) (string, error) {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.String:
		return res.Str, nil
	case gjson.Null:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %q", truncate(raw))
	}
}

// ToTargetInfo 将 devtool 目标转换为领域模型
func ToTargetInfo(t *devtool.Target) model.TargetInfo {
	return model.TargetInfo{
		ID:    model.TargetID(t.ID),
		Type:  string(t.Type),
		URL:   t.URL,
		Title: t.Title,
	}
}

func truncate(raw []byte) string {
	if len(raw) > 80 {
		return string(raw[:80]) + "..."
	}
	return string(raw)
}

// Package ai 提供 AI 聊天客户端与模型输出解析
package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/kaptinlin/jsonrepair"
)

// ExtractObject 从模型原始输出中提取 JSON 对象
// 解析链：直接解析 → 截取首个 { 到最后一个 } → jsonrepair 强力修复
// 永不报错：提取失败时返回空对象和一条可读的警告
func ExtractObject(raw string) (map[string]any, []string) {
	s := strings.TrimSpace(raw)

	// 快速路径：整段就是有效 JSON
	if obj, ok := parseObject(s); ok {
		return obj, nil
	}

	// 尝试提取 JSON 对象区域
	i := strings.IndexByte(s, '{')
	j := strings.LastIndexByte(s, '}')
	if i >= 0 && j >= i {
		sub := s[i : j+1]
		if obj, ok := parseObject(sub); ok {
			return obj, nil
		}

		// 使用 jsonrepair 进行强力修复
		if fixed, err := jsonrepair.JSONRepair(sub); err == nil {
			if obj, ok := parseObject(fixed); ok {
				return obj, nil
			}
		}
	}

	return map[string]any{}, []string{"no JSON object could be extracted from model output"}
}

// ParseAssessment 将模型的结构化回答解析为评估结果
// score 限制在 [0,1]，criteria 容忍标量和 null
func ParseAssessment(raw string) (*model.Assessment, []string) {
	obj, warnings := ExtractObject(raw)

	return &model.Assessment{
		Score:    clampScore(obj["score"]),
		Criteria: toStringList(obj["criteria"]),
	}, warnings
}

// parseObject 尝试把字符串解析为 JSON 对象
func parseObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, true
}

// clampScore 将任意取值归一化到 [0,1]
// 非数字或缺失降级为 0.0
func clampScore(v any) float64 {
	var score float64
	switch val := v.(type) {
	case float64:
		score = val
	case int:
		score = float64(val)
	case json.Number:
		score, _ = val.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0.0
		}
		score = parsed
	default:
		return 0.0
	}

	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}

// toStringList 将任意取值归一化为字符串列表
// null 降级为空列表，标量包装为单元素列表
func toStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, toString(item))
		}
		return items
	case []string:
		return append([]string{}, val...)
	default:
		return []string{toString(val)}
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

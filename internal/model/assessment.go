package model

// Assessment 结构化分析结果
// 模型以 JSON 形式回答时解析得到的评分与判据
type Assessment struct {
	Score     float64  `json:"score"`
	Criteria  []string `json:"criteria"`
	Threshold float64  `json:"threshold"`
}

// AboveThreshold 判断评分是否超过阈值
func (a *Assessment) AboveThreshold() bool {
	return a.Score > a.Threshold
}

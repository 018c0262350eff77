package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// Concurrency: 逐记录阶段与按类聚合的并发度。1 表示顺序执行。
	Concurrency int `json:"concurrency" validate:"gte=1"`
	// TopN: 报告中每类保留的高频词干数；0 表示全部。nil 表示未设置。
	TopN *int `json:"top_n,omitempty" validate:"omitempty,gte=0"`
	// Labels: 类别闭集合（顺序即报告顺序）。
	Labels []string `json:"labels" validate:"min=1,unique,dive,required"`
	// LabelPolicy: 未知标签处理 reject|ignore|bucket。
	LabelPolicy string `json:"label_policy" validate:"omitempty,oneof=reject ignore bucket"`
	// VerifyInvariants: 每阶段后校验数据模型不变量。默认 true。
	VerifyInvariants *bool `json:"verify_invariants,omitempty"`

	// OutputDir: 非空时覆盖 writer 选项中的 output_dir。
	OutputDir string `json:"output_dir"`

	Logging Logging `json:"logging"`
	Metrics Metrics `json:"metrics"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录。
type Logging struct {
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	// Dir: 轮转日志目录，默认 "logs"。
	Dir string `json:"dir"`
}

// Metrics: 指标输出。File 非空时于运行结束写出 Prometheus 文本格式。
type Metrics struct {
	File string `json:"file"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader     string   `json:"reader"`
	Parser     string   `json:"parser"`
	Normalizer string   `json:"normalizer"`
	Filter     string   `json:"filter"`
	Stemmer    string   `json:"stemmer"`
	Reporters  []string `json:"reporters" validate:"omitempty,unique"`
	Writer     string   `json:"writer"`
	// Store: 可选；空表示不写结构化结果库。
	Store string `json:"store"`
}

// Options: 各组件的原样 JSON Options。
// Stemmer/Reporter 以实现名为键，切换实现时无需改写选项。
type Options struct {
	Reader     json.RawMessage            `json:"reader"`
	Parser     json.RawMessage            `json:"parser"`
	Normalizer json.RawMessage            `json:"normalizer"`
	Filter     json.RawMessage            `json:"filter"`
	Stemmer    map[string]json.RawMessage `json:"stemmer"`
	Reporter   map[string]json.RawMessage `json:"reporter"`
	Writer     json.RawMessage            `json:"writer"`
	Store      json.RawMessage            `json:"store"`
}

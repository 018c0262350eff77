package json

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"spamstat/pkg/contract"
)

// Options 为 JSON 报告的可选配置。
type Options struct {
	// Indent: 是否缩进输出。默认 true。
	Indent *bool `json:"indent,omitempty"`
	// IncludeRecords: 是否附带逐记录处理结果。默认 false。
	IncludeRecords bool `json:"include_records"`
	// FileName: 工件名。默认 "report.json"。
	FileName string `json:"file_name"`
}

// Reporter 将 Report 渲染为单个 JSON 文档。
type Reporter struct {
	indent  bool
	records bool
	name    contract.ArtifactID
}

// New 创建 JSON Reporter。
func New(opts *Options) *Reporter {
	r := &Reporter{indent: true, name: "report.json"}
	if opts != nil {
		if opts.Indent != nil {
			r.indent = *opts.Indent
		}
		r.records = opts.IncludeRecords
		if n := strings.TrimSpace(opts.FileName); n != "" {
			r.name = contract.ArtifactID(n)
		}
	}
	return r
}

var _ contract.Reporter = (*Reporter)(nil)

// classView 在汇总之外补出全量排序列表。
type classView struct {
	contract.ClassSummary
	Sorted []contract.StemCount `json:"sorted"`
}

type reportView struct {
	RunID   string               `json:"run_id"`
	Labels  []contract.Label     `json:"labels"`
	Classes []classView          `json:"classes"`
	Ignored int                  `json:"ignored,omitempty"`
	Records []contract.RecordRow `json:"records,omitempty"`
}

// WantRecords 见 contract.Reporter。
func (r *Reporter) WantRecords() bool { return r.records }

// Render 输出 report.json。空列表输出为 []，不输出 null。
func (r *Reporter) Render(ctx context.Context, rep contract.Report) ([]contract.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := reportView{RunID: rep.RunID, Labels: rep.Labels, Ignored: rep.Ignored}
	if v.Labels == nil {
		v.Labels = []contract.Label{}
	}
	v.Classes = make([]classView, len(rep.Classes))
	for i, c := range rep.Classes {
		c.Top = nonNil(c.Top)
		c.StemLengths = nonNilInts(c.StemLengths)
		c.MessageLengths = nonNilInts(c.MessageLengths)
		if c.Table == nil {
			c.Table = map[string]int{}
		}
		v.Classes[i] = classView{ClassSummary: c, Sorted: nonNil(c.Sorted)}
	}
	if r.records {
		v.Records = rep.Records
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if r.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []contract.Artifact{{ID: r.name, Body: &buf}}, nil
}

func nonNil(s []contract.StemCount) []contract.StemCount {
	if s == nil {
		return []contract.StemCount{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

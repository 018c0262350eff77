package contract

import (
	"context"
	"io"
)

// StemCount: 有序视图中的 (stem, count) 对。
type StemCount struct {
	Stem  string `json:"stem"`
	Count int    `json:"count"`
}

// NoDataNote: 类别无数据时统计量的固定说明。
const NoDataNote = "no data for class"

// ClassSummary: 单个类别的聚合结果（只读）。
// AvgStemLength/AvgMessageLength 为 nil 表示无数据，此时 Note 为 NoDataNote。
type ClassSummary struct {
	Label         Label `json:"label"`
	Records       int   `json:"records"`
	EmptyRecords  int   `json:"empty_records"`
	Tokens        int   `json:"tokens"`
	DistinctStems int   `json:"distinct_stems"`

	// Table: 完整频次表（无序映射，用于全量落盘）。
	Table map[string]int `json:"table"`
	// Sorted: 全量按 count 降序、并列按首次出现顺序的列表。
	Sorted []StemCount `json:"-"`
	// Top: Sorted 的前 N 项（N<=0 时与 Sorted 相同）。
	Top []StemCount `json:"top"`

	AvgStemLength    *float64 `json:"avg_stem_length"`
	AvgMessageLength *float64 `json:"avg_message_length"`
	Note             string   `json:"note,omitempty"`

	// StemLengths: 各不同词干的长度（按首次出现顺序），用于直方图。
	StemLengths []int `json:"stem_lengths"`
	// MessageLengths: 各记录词干文本的字符长度（按记录顺序）。
	MessageLengths []int `json:"message_lengths"`
}

// RecordRow: 逐记录处理结果（可选输出）。
type RecordRow struct {
	FileID     FileID `json:"file_id"`
	Index      Index  `json:"index"`
	Label      Label  `json:"label"`
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Filtered   string `json:"filtered"`
	Stemmed    string `json:"stemmed"`
}

// Report: 一次批处理的完整输出。Classes 与 Labels 顺序一致。
type Report struct {
	RunID   string         `json:"run_id"`
	Labels  []Label        `json:"labels"`
	Classes []ClassSummary `json:"classes"`
	// Ignored: label_policy=ignore 时被丢弃的记录数。
	Ignored int         `json:"ignored,omitempty"`
	Records []RecordRow `json:"records,omitempty"`
}

// ArtifactID: 结果工件标识（与 FileID 同一表示）。
type ArtifactID = FileID

// Artifact: Reporter 产出的单个工件。
type Artifact struct {
	ID   ArtifactID
	Body io.Reader
}

// Reporter: 将 Report 渲染为若干工件。
// 约束：纯渲染，不做 I/O；不修改 Report；工件顺序确定。
type Reporter interface {
	Render(ctx context.Context, rep Report) ([]Artifact, error)
	// WantRecords: 是否需要编排层在 Report 中附带逐记录行。
	WantRecords() bool
}

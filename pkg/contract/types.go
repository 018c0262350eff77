package contract

// FileID: 逻辑语料文件 ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内数据行的稳定递增索引（0..n-1，不含表头）。
type Index int64

// Meta: 可选的轻量元信息；核心流程不读取其键值。
type Meta map[string]string

// Label: 类别标签（闭集合由配置给出，规范值为 ham/spam）。
type Label string

const (
	LabelHam  Label = "ham"
	LabelSpam Label = "spam"
)

// Record: 原子输入记录（读入后不可变）。
// 约束：
// - Label 已在解析边界做 TrimSpace + 小写，不做闭集合校验；
// - Text 缺失视为空串，不是错误。
type Record struct {
	Index  Index
	FileID FileID
	Label  Label
	Text   string
	Meta   Meta // 可为 nil
}

// NormalizedRecord: Record + 归一化文本。
// 约束：Normalized 仅含 [a-z ]，单空格分隔且无首尾空白。
// Empty 表示“无可用文本”，但记录仍参与后续所有阶段。
type NormalizedRecord struct {
	Record
	Normalized string
	Empty      bool
}

// FilteredRecord: NormalizedRecord + 去停用词文本。
// 约束：Filtered 中任何 token 都不属于停用词集合。
type FilteredRecord struct {
	NormalizedRecord
	Filtered string
}

// StemmedRecord: FilteredRecord + 词干文本。
// 约束：token 数与 Filtered 一致；空 token 被丢弃而非词干化。
type StemmedRecord struct {
	FilteredRecord
	Stemmed string
}

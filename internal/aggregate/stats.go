package aggregate

import (
	"spamstat/pkg/contract"
)

// AvgStemLength 返回不同 stem 的平均字节长度；空表返回 ErrNoData。
func AvgStemLength(t *FrequencyTable) (float64, error) {
	if t == nil || t.Len() == 0 {
		return 0, contract.ErrNoData
	}
	sum := 0
	for _, k := range t.order {
		sum += len(k)
	}
	return float64(sum) / float64(t.Len()), nil
}

// AvgMessageLength 返回各记录词干文本长度（含内部空格）的均值；无记录返回 ErrNoData。
func AvgMessageLength(recs []contract.StemmedRecord) (float64, error) {
	if len(recs) == 0 {
		return 0, contract.ErrNoData
	}
	sum := 0
	for _, r := range recs {
		sum += len(r.Stemmed)
	}
	return float64(sum) / float64(len(recs)), nil
}

// MessageLengths 返回各记录词干文本长度（按记录顺序）。
func MessageLengths(recs []contract.StemmedRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = len(r.Stemmed)
	}
	return out
}

// Summarize 生成单个类别的只读汇总。topN<=0 表示不截断。
func Summarize(c *Class, topN int) contract.ClassSummary {
	t := c.Table
	if t == nil {
		t = fold(c.Records)
	}
	s := contract.ClassSummary{
		Label:          c.Label,
		Records:        len(c.Records),
		Tokens:         t.Total(),
		DistinctStems:  t.Len(),
		Table:          t.Map(),
		Sorted:         t.Sorted(),
		StemLengths:    t.Lengths(),
		MessageLengths: MessageLengths(c.Records),
	}
	for _, r := range c.Records {
		if r.Empty {
			s.EmptyRecords++
		}
	}
	s.Top = s.Sorted
	if topN > 0 && topN < len(s.Sorted) {
		s.Top = s.Sorted[:topN]
	}
	if v, err := AvgStemLength(t); err == nil {
		s.AvgStemLength = &v
	} else {
		s.Note = contract.NoDataNote
	}
	if v, err := AvgMessageLength(c.Records); err == nil {
		s.AvgMessageLength = &v
	} else {
		s.Note = contract.NoDataNote
	}
	return s
}

// Summaries 按 Result.Labels 顺序汇总全部类别。
func Summaries(r *Result, topN int) []contract.ClassSummary {
	out := make([]contract.ClassSummary, 0, len(r.Labels))
	for _, l := range r.Labels {
		out = append(out, Summarize(r.Classes[l], topN))
	}
	return out
}

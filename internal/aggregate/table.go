package aggregate

import (
	"sort"
	"strings"

	"spamstat/pkg/contract"
)

// FrequencyTable: 单个类别的 stem → count 映射，并记录键的首次出现顺序。
// 约束：
// - 所有 count > 0；Total() == 累计加入的 token 次数；
// - order 与 counts 的键集合一致，顺序即首次插入顺序；
// - 零值不可用，请经 NewTable 构造。
type FrequencyTable struct {
	order  []string
	counts map[string]int
	total  int
}

// NewTable 返回空表。
func NewTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[string]int)}
}

// Add 为 stem 累加 n（n<=0 或空 stem 忽略）。
func (t *FrequencyTable) Add(stem string, n int) {
	if stem == "" || n <= 0 {
		return
	}
	if _, ok := t.counts[stem]; !ok {
		t.order = append(t.order, stem)
	}
	t.counts[stem] += n
	t.total += n
}

// Get 返回 stem 的计数（不存在为 0）。
func (t *FrequencyTable) Get(stem string) int { return t.counts[stem] }

// Len 返回不同 stem 数。
func (t *FrequencyTable) Len() int { return len(t.order) }

// Total 返回全部计数之和。
func (t *FrequencyTable) Total() int { return t.total }

// Keys 返回按首次出现顺序的键副本。
func (t *FrequencyTable) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Map 返回计数映射的副本。
func (t *FrequencyTable) Map() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Sorted 返回全部 (stem,count)：count 降序，并列保持首次出现顺序。
func (t *FrequencyTable) Sorted() []contract.StemCount {
	out := make([]contract.StemCount, len(t.order))
	for i, k := range t.order {
		out[i] = contract.StemCount{Stem: k, Count: t.counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Top 返回 Sorted 的前 n 项；n<=0 或超过表长时返回全部。
func (t *FrequencyTable) Top(n int) []contract.StemCount {
	s := t.Sorted()
	if n > 0 && n < len(s) {
		s = s[:n]
	}
	return s
}

// Lengths 返回各不同 stem 的字节长度（按首次出现顺序）。
func (t *FrequencyTable) Lengths() []int {
	out := make([]int, len(t.order))
	for i, k := range t.order {
		out[i] = len(k)
	}
	return out
}

// Count 统计单条记录的词干 token。空文本得到空表。
func Count(rec contract.StemmedRecord) *FrequencyTable {
	t := NewTable()
	for _, tok := range strings.Fields(rec.Stemmed) {
		t.Add(tok, 1)
	}
	return t
}

// Merge 返回 a 与 b 的合并结果（新表，不修改入参）。
// 键顺序：a 的键在前，其后为 b 中 a 未出现的键（按 b 的顺序）。nil 视为空表。
// 该顺序使 Merge 满足结合律：Merge(Merge(a,b),c) 与 Merge(a,Merge(b,c)) 完全一致。
func Merge(a, b *FrequencyTable) *FrequencyTable {
	out := NewTable()
	mergeInto(out, a)
	mergeInto(out, b)
	return out
}

func mergeInto(dst, src *FrequencyTable) {
	if src == nil {
		return
	}
	for _, k := range src.order {
		dst.Add(k, src.counts[k])
	}
}

package contract

// Normalizer: 原始文本 → 仅含小写 ASCII 字母与单空格的文本。
// 约束：
//  1. 删除（而非替换）[A-Za-z ] 之外的所有字符，由此产生的词粘连保持原样；
//  2. 字符过滤之后再小写；
//  3. 幂等：Normalize(Normalize(s)) == Normalize(s)；
//  4. 纯函数，可跨记录并发调用。
type Normalizer interface {
	Normalize(s string) string
}

// Filter: 归一化文本 → 去除停用词后的文本。
// 约束：
//  1. 整词匹配（按空白分隔的 token），不匹配子串；
//  2. 结果单空格分隔、无首尾空白；
//  3. 词表在构造时一次加载，运行期只读。
type Filter interface {
	Filter(s string) string
	IsStopword(token string) bool
}

// Stemmer: 单个小写字母 token → 词干。
// 约束：纯函数、确定性、不使用跨 token 上下文；空 token 返回空串。
type Stemmer interface {
	Stem(token string) string
}

package alpha

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"spamstat/pkg/contract"
)

// Options 为 alpha Normalizer 的可选配置。
type Options struct {
	// FoldDiacritics: 过滤前先做 NFD 分解并去除组合附加符号（café → cafe）。
	// 默认 false：非 ASCII 字母整体删除（café → caf）。
	FoldDiacritics bool `json:"fold_diacritics"`
}

// Normalizer 仅保留 [A-Za-z ]，随后小写并折叠空白。
type Normalizer struct {
	fold bool
}

// New 创建 alpha Normalizer。
func New(opts *Options) *Normalizer {
	n := &Normalizer{}
	if opts != nil {
		n.fold = opts.FoldDiacritics
	}
	return n
}

var _ contract.Normalizer = (*Normalizer)(nil)

// Normalize 逐字节过滤：非 [A-Za-z ] 的字节直接删除（多字节 UTF-8 序列的每个字节均 >=0x80，
// 因此整体被删）。空格游程折叠为单个空格，首尾空白不输出。
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	if n.fold {
		s = foldMarks(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c == ' ':
			// 只在已有输出时记下待写空格，从而天然去掉前导空白
			pending = b.Len() > 0
			continue
		default:
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// foldMarks: NFD → 去除 Mn → NFC。transform.Chain 带内部状态，不可跨 goroutine 复用，故每次新建。
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

package stopword

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"spamstat/pkg/contract"
)

//go:embed english.txt
var englishList string

// Options 为停用词过滤器的可选配置。
type Options struct {
	// Language: 内置词表语言，仅支持 "english"（默认）。
	Language string `json:"language"`
	// Path: 以文件替换内置词表（每行一词，# 开头为注释）。
	Path string `json:"path"`
	// Extra: 追加的停用词。
	Extra []string `json:"extra"`
}

// Filter 以整词方式删除停用词。词表构造后只读，可并发调用。
type Filter struct {
	set mapset.Set[string]
}

// New 按选项加载词表；加载失败即返回错误（进程启动期一次性加载）。
func New(opts *Options) (*Filter, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	lang := strings.ToLower(strings.TrimSpace(o.Language))
	if lang != "" && lang != "english" {
		return nil, fmt.Errorf("%w: stopword language %q not supported", contract.ErrInvalidInput, o.Language)
	}
	var words []string
	if p := strings.TrimSpace(o.Path); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if words, err = ParseList(f); err != nil {
			return nil, err
		}
	} else {
		words, _ = ParseList(strings.NewReader(englishList))
	}
	return NewFromWords(append(words, o.Extra...)), nil
}

// NewFromWords 以给定词集合构造过滤器（小写 + 去空白；空串忽略）。
func NewFromWords(words []string) *Filter {
	// 构造完成后不再写入，读并发安全，故使用非加锁实现
	set := mapset.NewThreadUnsafeSet[string]()
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set.Add(w)
		}
	}
	return &Filter{set: set}
}

// ParseList 读取每行一词的词表。
func ParseList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return out, sc.Err()
}

var _ contract.Filter = (*Filter)(nil)

// Filter 删除整词停用词并折叠空白、去首尾空白。
func (f *Filter) Filter(s string) string {
	toks := strings.Fields(s)
	kept := toks[:0]
	for _, t := range toks {
		if !f.set.Contains(t) {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// IsStopword 判断单个 token 是否为停用词。
func (f *Filter) IsStopword(token string) bool { return f.set.Contains(token) }

// Len 返回词表大小。
func (f *Filter) Len() int { return f.set.Cardinality() }

// Words 返回排序后的词表副本。
func (f *Filter) Words() []string {
	out := f.set.ToSlice()
	sort.Strings(out)
	return out
}

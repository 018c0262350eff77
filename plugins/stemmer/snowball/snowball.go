package snowball

import (
	"strings"

	"github.com/kljensen/snowball/english"

	"spamstat/pkg/contract"
)

// Options 为 Snowball（Porter2）英文词干器的可选配置。
type Options struct {
	// StemStopwords: 是否对 Snowball 自带停用词也做词干化。
	// 默认 true（与 NLTK SnowballStemmer('english') 默认行为一致）；false 时原样返回这些词。
	StemStopwords *bool `json:"stem_stopwords,omitempty"`
}

// Stemmer 包装 kljensen/snowball 的英文实现。无状态，可并发调用。
type Stemmer struct {
	stemStop bool
}

// New 创建 Snowball Stemmer。
func New(opts *Options) *Stemmer {
	s := &Stemmer{stemStop: true}
	if opts != nil && opts.StemStopwords != nil {
		s.stemStop = *opts.StemStopwords
	}
	return s
}

var _ contract.Stemmer = (*Stemmer)(nil)

// Stem 返回 token 的词干；空白被去除，空 token 返回空串。
func (s *Stemmer) Stem(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return english.Stem(token, s.stemStop)
}

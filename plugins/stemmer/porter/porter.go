package porter

import (
	"strings"

	porterstemmer "github.com/reiver/go-porterstemmer"

	"spamstat/pkg/contract"
)

// Stemmer 为经典 Porter（1980）算法实现，无配置项。
type Stemmer struct{}

// New 创建 Porter Stemmer。
func New() *Stemmer { return &Stemmer{} }

var _ contract.Stemmer = (*Stemmer)(nil)

// Stem 返回 token 的词干；空 token 返回空串。
func (Stemmer) Stem(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return porterstemmer.StemString(token)
}

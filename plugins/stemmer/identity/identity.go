package identity

import (
	"strings"

	"spamstat/pkg/contract"
)

// Stemmer 原样返回 token（仅去空白），用于对照与诊断。
type Stemmer struct{}

var _ contract.Stemmer = Stemmer{}

func (Stemmer) Stem(token string) string { return strings.TrimSpace(token) }

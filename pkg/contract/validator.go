package contract

import (
	"fmt"
	"strings"
)

// 校验库函数（纯函数，无 I/O），供编排层在阶段之间断言数据模型不变量：
// - ValidateNormalized: 仅含 [a-z ]、单空格、无首尾空白；
// - ValidateFiltered:   无 token 属于停用词集合；
// - ValidateStemmed:    token 数与 Filtered 一致且无空 token。
// 违例统一包装 ErrInvariantViolation。

func ValidateNormalized(r NormalizedRecord) error {
	s := r.Normalized
	if r.Empty != (s == "") {
		return violation(r.Record, "empty flag mismatch")
	}
	prevSpace := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			prevSpace = false
		case c == ' ':
			if prevSpace {
				return violation(r.Record, "leading or repeated space")
			}
			prevSpace = true
		default:
			return violation(r.Record, fmt.Sprintf("character %q outside [a-z ]", c))
		}
	}
	if s != "" && prevSpace {
		return violation(r.Record, "trailing space")
	}
	return nil
}

func ValidateFiltered(r FilteredRecord, isStop func(string) bool) error {
	for _, tok := range strings.Split(r.Filtered, " ") {
		if tok == "" {
			if r.Filtered != "" {
				return violation(r.Record, "empty token in filtered text")
			}
			continue
		}
		if isStop != nil && isStop(tok) {
			return violation(r.Record, fmt.Sprintf("stopword %q survived filtering", tok))
		}
	}
	return nil
}

func ValidateStemmed(r StemmedRecord) error {
	want := len(strings.Fields(r.Filtered))
	got := strings.Fields(r.Stemmed)
	if len(got) != want {
		return violation(r.Record, fmt.Sprintf("token count %d != %d", len(got), want))
	}
	if strings.Join(got, " ") != r.Stemmed {
		return violation(r.Record, "stemmed text not single-space joined")
	}
	return nil
}

func violation(rec Record, msg string) error {
	return fmt.Errorf("%w: %s#%d: %s", ErrInvariantViolation, rec.FileID, rec.Index, msg)
}

package aggregate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"spamstat/pkg/contract"
)

// Policy: 标签不在配置闭集合内时的处理方式。
type Policy string

const (
	// PolicyReject: 整批失败（默认）。
	PolicyReject Policy = "reject"
	// PolicyIgnore: 丢弃该记录，仅计数。
	PolicyIgnore Policy = "ignore"
	// PolicyBucket: 为该标签单独建类，排在配置标签之后（按首次出现顺序）。
	PolicyBucket Policy = "bucket"
)

// ParsePolicy 解析策略名；空串为 reject。
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReject, nil
	case PolicyReject, PolicyIgnore, PolicyBucket:
		return p, nil
	default:
		return "", fmt.Errorf("%w: label_policy %q", contract.ErrInvalidInput, s)
	}
}

// Class: 单个类别的记录与频次表。
type Class struct {
	Label   contract.Label
	Records []contract.StemmedRecord
	Table   *FrequencyTable
}

// Result: 聚合结果。Labels 为输出顺序（配置标签 + bucket 追加的标签）。
type Result struct {
	Labels  []contract.Label
	Classes map[contract.Label]*Class
	// Ignored: PolicyIgnore 下被丢弃的记录数；IgnoredLabels 为对应标签（首次出现顺序）。
	Ignored       int
	IgnoredLabels []contract.Label
}

// Class 返回指定标签的类别（不存在返回 nil）。
func (r *Result) Class(l contract.Label) *Class { return r.Classes[l] }

// Group 按标签分组（保持输入顺序），并按 policy 处理未知标签。
// 配置标签即使无记录也会出现在结果中。
func Group(recs []contract.StemmedRecord, labels []contract.Label, policy Policy) (*Result, error) {
	res := &Result{Classes: make(map[contract.Label]*Class, len(labels))}
	for _, l := range labels {
		if _, dup := res.Classes[l]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", contract.ErrInvalidInput, l)
		}
		res.Classes[l] = &Class{Label: l}
		res.Labels = append(res.Labels, l)
	}
	ignored := map[contract.Label]struct{}{}
	for _, rec := range recs {
		c, ok := res.Classes[rec.Label]
		if !ok {
			switch policy {
			case PolicyIgnore:
				res.Ignored++
				if _, seen := ignored[rec.Label]; !seen {
					ignored[rec.Label] = struct{}{}
					res.IgnoredLabels = append(res.IgnoredLabels, rec.Label)
				}
				continue
			case PolicyBucket:
				c = &Class{Label: rec.Label}
				res.Classes[rec.Label] = c
				res.Labels = append(res.Labels, rec.Label)
			default:
				return nil, fmt.Errorf("%w: %q at %s#%d", contract.ErrUnknownLabel, rec.Label, rec.FileID, rec.Index)
			}
		}
		c.Records = append(c.Records, rec)
	}
	return res, nil
}

// Build 分组后按标签分片并行折叠频次表。workers<=1 时顺序执行；结果与并发度无关。
func Build(ctx context.Context, recs []contract.StemmedRecord, labels []contract.Label, policy Policy, workers int) (*Result, error) {
	res, err := Group(recs, labels, policy)
	if err != nil {
		return nil, err
	}
	tables := make([]*FrequencyTable, len(res.Labels))
	if workers <= 1 {
		for i, l := range res.Labels {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tables[i] = fold(res.Classes[l].Records)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, l := range res.Labels {
			rs := res.Classes[l].Records
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tables[i] = fold(rs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	for i, l := range res.Labels {
		res.Classes[l].Table = tables[i]
	}
	return res, nil
}

// fold: 每条记录先 Count，再依序并入。等价于左折叠 Merge。
func fold(recs []contract.StemmedRecord) *FrequencyTable {
	t := NewTable()
	for _, r := range recs {
		mergeInto(t, Count(r))
	}
	return t
}

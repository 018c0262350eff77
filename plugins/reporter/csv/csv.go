package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"spamstat/pkg/contract"
)

// Options 为 CSV 报告的可选配置。
type Options struct {
	// IncludeRecords: 额外输出 records.csv（逐记录各阶段文本）。默认 false。
	IncludeRecords bool `json:"include_records"`
	// Lengths: 是否输出 lengths_<label>.csv。默认 true。
	Lengths *bool `json:"lengths,omitempty"`
}

// Reporter 将 Report 渲染为一组 CSV 表。
// 工件顺序：stats.csv，随后每个类别依次 freq_/top_/lengths_，最后 records.csv。
type Reporter struct {
	records bool
	lengths bool
}

// New 创建 CSV Reporter。
func New(opts *Options) *Reporter {
	r := &Reporter{lengths: true}
	if opts != nil {
		r.records = opts.IncludeRecords
		if opts.Lengths != nil {
			r.lengths = *opts.Lengths
		}
	}
	return r
}

var _ contract.Reporter = (*Reporter)(nil)

// WantRecords 见 contract.Reporter。
func (r *Reporter) WantRecords() bool { return r.records }

// Render 见 contract.Reporter。
func (r *Reporter) Render(ctx context.Context, rep contract.Report) ([]contract.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var arts []contract.Artifact
	add := func(id contract.ArtifactID, header []string, rows [][]string) error {
		body, err := table(header, rows)
		if err != nil {
			return err
		}
		arts = append(arts, contract.Artifact{ID: id, Body: body})
		return nil
	}

	stats := make([][]string, 0, len(rep.Classes))
	for _, c := range rep.Classes {
		stats = append(stats, []string{
			string(c.Label),
			strconv.Itoa(c.Records),
			strconv.Itoa(c.EmptyRecords),
			strconv.Itoa(c.Tokens),
			strconv.Itoa(c.DistinctStems),
			float(c.AvgStemLength),
			float(c.AvgMessageLength),
			c.Note,
		})
	}
	if err := add("stats.csv", []string{"label", "records", "empty_records", "tokens", "distinct_stems", "avg_stem_length", "avg_message_length", "note"}, stats); err != nil {
		return nil, err
	}

	slugs := classSlugs(rep.Classes)
	for i, c := range rep.Classes {
		slug := contract.Label(slugs[i])
		if err := add(contract.ArtifactName("freq_", slug, ".csv"), []string{"stem", "count"}, pairs(c.Sorted, false)); err != nil {
			return nil, err
		}
		if err := add(contract.ArtifactName("top_", slug, ".csv"), []string{"rank", "stem", "count"}, pairs(c.Top, true)); err != nil {
			return nil, err
		}
		if r.lengths {
			rows := make([][]string, 0, len(c.StemLengths)+len(c.MessageLengths))
			for _, n := range c.StemLengths {
				rows = append(rows, []string{"stem", strconv.Itoa(n)})
			}
			for _, n := range c.MessageLengths {
				rows = append(rows, []string{"message", strconv.Itoa(n)})
			}
			if err := add(contract.ArtifactName("lengths_", slug, ".csv"), []string{"kind", "length"}, rows); err != nil {
				return nil, err
			}
		}
	}

	if r.records {
		rows := make([][]string, 0, len(rep.Records))
		for _, rr := range rep.Records {
			rows = append(rows, []string{
				string(rr.FileID), strconv.FormatInt(int64(rr.Index), 10), string(rr.Label),
				rr.Raw, rr.Normalized, rr.Filtered, rr.Stemmed,
			})
		}
		if err := add("records.csv", []string{"file_id", "index", "label", "raw", "normalized", "filtered", "stemmed"}, rows); err != nil {
			return nil, err
		}
	}
	return arts, nil
}

// classSlugs 为每个类别给出互不相同的文件名片段。
// 不同标签经 ArtifactName 清洗后可能同名（"a b" 与 "a_b"），
// 后出现者追加 _<类别序号>（从 1 起），仍冲突则继续递增。
func classSlugs(classes []contract.ClassSummary) []string {
	out := make([]string, len(classes))
	used := make(map[string]struct{}, len(classes))
	for i, c := range classes {
		base := string(contract.ArtifactName("", c.Label, ""))
		slug := base
		for n := i + 1; ; n++ {
			if _, dup := used[slug]; !dup {
				break
			}
			slug = base + "_" + strconv.Itoa(n)
		}
		used[slug] = struct{}{}
		out[i] = slug
	}
	return out
}

func pairs(s []contract.StemCount, ranked bool) [][]string {
	rows := make([][]string, len(s))
	for i, p := range s {
		if ranked {
			rows[i] = []string{strconv.Itoa(i + 1), p.Stem, strconv.Itoa(p.Count)}
		} else {
			rows[i] = []string{p.Stem, strconv.Itoa(p.Count)}
		}
	}
	return rows
}

// float: nil 输出空单元格。
func float(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func table(header []string, rows [][]string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return &buf, nil
}

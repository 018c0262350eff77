package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"spamstat/internal/aggregate"
	"spamstat/internal/diag"
	"spamstat/pkg/contract"
)

// - 整批：全部语料先读入内存，阶段 N 对所有记录完成后才进入阶段 N+1。
// - 单点并发：仅此层管理并发；原子组件均为同步、无内部并发。
// - 首错取消：任一阶段出错即中止整批，不产出部分结果。
// - 源头失败（读取、解析、编码、未知标签 reject）发生在任何变换之前。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader     contract.Reader
	Parser     contract.Parser
	Normalizer contract.Normalizer
	Filter     contract.Filter
	Stemmer    contract.Stemmer
	Reporters  []contract.Reporter
	Writer     contract.Writer
	// Store 可选；nil 表示不写结构化结果库。
	Store contract.Store
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs      []string
	Concurrency int
	// TopN: 每类 top 视图长度；<=0 表示全部。
	TopN             int
	Labels           []contract.Label
	Policy           aggregate.Policy
	VerifyInvariants bool
	// RunID: 报告与结果库中的运行标识（通常与日志 corr_id 相同）。
	RunID string
}

// Run 执行完整流水线：Reader → Parser → Normalizer → Filter → Stemmer → Aggregator → Reporter → Writer (→ Store)。
// 约束：
// - 所有组件均为同步实现；并发只发生在逐记录阶段与按类聚合；
// - 工件按 Reporter 顺序、Reporter 内按工件顺序写出，保证输出稳定；
// - 返回的 Report 与写出的内容一致。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (contract.Report, error) {
	if err := sanity(comp, set); err != nil {
		return contract.Report{}, fmt.Errorf("sanity: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recs, err := load(ctx, comp, set.Inputs, logger)
	if err != nil {
		return contract.Report{}, err
	}
	if set.Policy == aggregate.PolicyReject || set.Policy == "" {
		if err := checkLabels(recs, set.Labels); err != nil {
			fail(logger, "parser", "label check failed", "", err)
			return contract.Report{}, err
		}
	}

	var normalized []contract.NormalizedRecord
	err = stage(logger, "normalizer", "normalize", len(recs), func() error {
		var e error
		normalized, e = NormalizeAll(ctx, comp.Normalizer, recs, set.Concurrency, set.VerifyInvariants)
		return e
	})
	if err != nil {
		return contract.Report{}, fmt.Errorf("normalizer: %w", err)
	}

	var filtered []contract.FilteredRecord
	err = stage(logger, "filter", "filter", len(recs), func() error {
		var e error
		filtered, e = FilterAll(ctx, comp.Filter, normalized, set.Concurrency, set.VerifyInvariants)
		return e
	})
	if err != nil {
		return contract.Report{}, fmt.Errorf("filter: %w", err)
	}

	var stemmed []contract.StemmedRecord
	err = stage(logger, "stemmer", "stem", len(recs), func() error {
		var e error
		stemmed, e = StemAll(ctx, comp.Stemmer, filtered, set.Concurrency, set.VerifyInvariants)
		return e
	})
	if err != nil {
		return contract.Report{}, fmt.Errorf("stemmer: %w", err)
	}

	var res *aggregate.Result
	err = stage(logger, "aggregate", "build", len(recs), func() error {
		var e error
		res, e = aggregate.Build(ctx, stemmed, set.Labels, set.Policy, set.Concurrency)
		return e
	})
	if err != nil {
		return contract.Report{}, fmt.Errorf("aggregate: %w", err)
	}
	if res.Ignored > 0 {
		logger.Warn("aggregate", "records with unknown labels ignored", map[string]string{
			"count":  strconv.Itoa(res.Ignored),
			"labels": joinLabels(res.IgnoredLabels),
		})
	}

	rep := contract.Report{
		RunID:   set.RunID,
		Labels:  res.Labels,
		Classes: aggregate.Summaries(res, set.TopN),
		Ignored: res.Ignored,
	}
	for _, c := range rep.Classes {
		diag.AddClass(string(c.Label), c.Records, c.Tokens)
		if c.Note != "" {
			logger.Warn("aggregate", c.Note, map[string]string{"label": string(c.Label)})
		}
	}
	if wantRecords(comp.Reporters) {
		rep.Records = rows(stemmed)
	}

	if err := emit(ctx, comp, rep, logger); err != nil {
		return contract.Report{}, err
	}
	if comp.Store != nil {
		t := logger.Start("store", "save")
		if err := comp.Store.Save(ctx, rep); err != nil {
			fail(logger, "store", "save failed", "", err)
			return contract.Report{}, fmt.Errorf("store save: %w", err)
		}
		t.Finish("save", int64(len(rep.Classes)))
		diag.IncOp("store", "finish", "success")
	}
	return rep, nil
}

// load 逐文件读取并解析；任一文件失败即整批中止。
func load(ctx context.Context, comp Components, roots []string, logger *diag.Logger) ([]contract.Record, error) {
	var all []contract.Record
	files := 0
	parseFailed := false
	rt := logger.Start("reader", "iterate")
	err := comp.Reader.Iterate(ctx, roots, func(fileID contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		pt := logger.StartWith("parser", "parse", string(fileID), "")
		recs, err := comp.Parser.Parse(ctx, fileID, rc)
		if err != nil {
			parseFailed = true
			fail(logger, "parser", "parse failed", string(fileID), err)
			return fmt.Errorf("parser parse %s: %w", fileID, err)
		}
		pt.Finish("parse", int64(len(recs)))
		diag.IncOp("parser", "finish", "success")
		diag.GetTerminal().FileLoaded(string(fileID), len(recs))
		files++
		all = append(all, recs...)
		return nil
	})
	if err != nil {
		// parser 错误已记录；此处仅记录 reader 自身错误
		if !parseFailed {
			fail(logger, "reader", "iterate failed", "", err)
		}
		return nil, fmt.Errorf("reader: %w", err)
	}
	rt.Finish("iterate", int64(files))
	diag.IncOp("reader", "finish", "success")
	return all, nil
}

// checkLabels: reject 策略下在任何变换之前校验标签闭集合。
func checkLabels(recs []contract.Record, labels []contract.Label) error {
	known := make(map[contract.Label]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}
	for _, r := range recs {
		if _, ok := known[r.Label]; !ok {
			return fmt.Errorf("%w: %q at %s#%d", contract.ErrUnknownLabel, r.Label, r.FileID, r.Index)
		}
	}
	return nil
}

// stage 包裹单个整批阶段：日志 start/finish/error、终端进度与指标。
func stage(logger *diag.Logger, comp, msg string, total int, fn func() error) error {
	term := diag.GetTerminal()
	term.StageStart(msg, total)
	t := logger.Start(comp, msg)
	err := fn()
	term.StageFinish(err == nil, t.Elapsed())
	if err != nil {
		fail(logger, comp, msg+" failed", "", err)
		return err
	}
	t.Finish(msg, int64(total))
	diag.IncOp(comp, "finish", "success")
	diag.ObserveDuration(comp, "finish", t.Elapsed().Milliseconds())
	return nil
}

// emit 渲染全部 Reporter 并逐个工件写出。
func emit(ctx context.Context, comp Components, rep contract.Report, logger *diag.Logger) error {
	for _, r := range comp.Reporters {
		rt := logger.Start("reporter", "render")
		arts, err := r.Render(ctx, rep)
		if err != nil {
			fail(logger, "reporter", "render failed", "", err)
			return fmt.Errorf("reporter render: %w", err)
		}
		rt.Finish("render", int64(len(arts)))
		diag.IncOp("reporter", "finish", "success")

		for _, a := range arts {
			wt := logger.StartWith("writer", "write", string(a.ID), "")
			if err := comp.Writer.Write(ctx, a.ID, a.Body); err != nil {
				fail(logger, "writer", "write failed", string(a.ID), err)
				return fmt.Errorf("writer write %s: %w", a.ID, err)
			}
			wt.Finish("write", 0)
			diag.IncOp("writer", "finish", "success")
		}
	}
	return nil
}

// fail 记录错误事件与错误指标。
func fail(logger *diag.Logger, comp, msg, fileID string, err error) {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, nil, fileID, "", map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func wantRecords(rs []contract.Reporter) bool {
	for _, r := range rs {
		if r.WantRecords() {
			return true
		}
	}
	return false
}

func rows(recs []contract.StemmedRecord) []contract.RecordRow {
	out := make([]contract.RecordRow, len(recs))
	for i, r := range recs {
		out[i] = contract.RecordRow{
			FileID:     r.FileID,
			Index:      r.Index,
			Label:      r.Label,
			Raw:        r.Text,
			Normalized: r.Normalized,
			Filtered:   r.Filtered,
			Stemmed:    r.Stemmed,
		}
	}
	return out
}

func joinLabels(ls []contract.Label) string {
	ss := make([]string, len(ls))
	for i, l := range ls {
		ss[i] = string(l)
	}
	return strings.Join(ss, ",")
}

// sanity 校验组件与设置的最小前置条件。
func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Parser == nil || c.Normalizer == nil || c.Filter == nil || c.Stemmer == nil || c.Writer == nil {
		return errors.New("missing component")
	}
	if len(c.Reporters) == 0 {
		return errors.New("no reporter")
	}
	for _, r := range c.Reporters {
		if r == nil {
			return errors.New("nil reporter")
		}
	}
	if len(s.Inputs) == 0 {
		return errors.New("no inputs")
	}
	if len(s.Labels) == 0 {
		return errors.New("no labels")
	}
	if s.Concurrency <= 0 {
		return errors.New("invalid concurrency")
	}
	return nil
}

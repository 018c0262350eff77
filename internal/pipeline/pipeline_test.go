package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"spamstat/internal/aggregate"
	"spamstat/pkg/contract"
	stopword "spamstat/plugins/filter/stopword"
	alpha "spamstat/plugins/normalizer/alpha"
	pcsv "spamstat/plugins/parser/csv"
	repjson "spamstat/plugins/reporter/json"
	ssnowball "spamstat/plugins/stemmer/snowball"
)

// 通用桩件 ----------------------------------------------------

// memReader 以内存内容充当输入文件（按给定顺序）。
type memReader struct {
	names []string
	files map[string]string
}

func (m memReader) Iterate(ctx context.Context, roots []string, yield func(contract.FileID, io.ReadCloser) error) error {
	for _, n := range m.names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(contract.FileID(n), io.NopCloser(strings.NewReader(m.files[n]))); err != nil {
			return err
		}
	}
	return nil
}

func oneFile(body string) memReader {
	return memReader{names: []string{"spam.csv"}, files: map[string]string{"spam.csv": body}}
}

type memWriter struct {
	mu    sync.Mutex
	order []contract.ArtifactID
	out   map[contract.ArtifactID][]byte
	err   error
}

func (w *memWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		w.out = map[contract.ArtifactID][]byte{}
	}
	w.order = append(w.order, id)
	w.out[id] = b
	return nil
}

type countingNormalizer struct {
	inner contract.Normalizer
	mu    sync.Mutex
	calls int
}

func (c *countingNormalizer) Normalize(s string) string {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Normalize(s)
}

// rawNormalizer 不做任何处理，用于触发不变量校验。
type rawNormalizer struct{}

func (rawNormalizer) Normalize(s string) string { return s }

type memStore struct {
	saved []contract.Report
	err   error
}

func (s *memStore) Save(ctx context.Context, rep contract.Report) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rep)
	return nil
}
func (s *memStore) Close() error { return nil }

func components(t testing.TB, r contract.Reader, w contract.Writer) Components {
	t.Helper()
	p, err := pcsv.New(nil)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	f, err := stopword.New(nil)
	if err != nil {
		t.Fatalf("stopword: %v", err)
	}
	return Components{
		Reader:     r,
		Parser:     p,
		Normalizer: alpha.New(nil),
		Filter:     f,
		Stemmer:    ssnowball.New(nil),
		Reporters:  []contract.Reporter{repjson.New(&repjson.Options{IncludeRecords: true})},
		Writer:     w,
	}
}

func settings(workers int) Settings {
	return Settings{
		Inputs:           []string{"spam.csv"},
		Concurrency:      workers,
		TopN:             20,
		Labels:           []contract.Label{contract.LabelHam, contract.LabelSpam},
		Policy:           aggregate.PolicyReject,
		VerifyInvariants: true,
		RunID:            "run-test",
	}
}

func class(t *testing.T, rep contract.Report, l contract.Label) contract.ClassSummary {
	t.Helper()
	for _, c := range rep.Classes {
		if c.Label == l {
			return c
		}
	}
	t.Fatalf("缺少类别 %s", l)
	return contract.ClassSummary{}
}

// UT-PIPE-01: 示例消息逐阶段结果
func TestRunWorkedExample(t *testing.T) {
	w := &memWriter{}
	comp := components(t, oneFile("v1,v2\nham,\"Hello, I am calling YOU at 3pm!!\"\n"), w)
	rep, err := Run(context.Background(), comp, settings(1), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.Records) != 1 {
		t.Fatalf("records: %d", len(rep.Records))
	}
	row := rep.Records[0]
	if row.Normalized != "hello i am calling you at pm" {
		t.Fatalf("normalized: %q", row.Normalized)
	}
	if row.Filtered != "hello calling pm" {
		t.Fatalf("filtered: %q", row.Filtered)
	}
	if row.Stemmed != "hello call pm" {
		t.Fatalf("stemmed: %q", row.Stemmed)
	}
	if _, ok := w.out["report.json"]; !ok {
		t.Fatalf("未写出 report.json: %v", w.order)
	}
	if !bytes.Contains(w.out["report.json"], []byte(`"run_id": "run-test"`)) {
		t.Fatalf("report.json 缺少 run_id")
	}
	spam := class(t, rep, contract.LabelSpam)
	if spam.Note != contract.NoDataNote || spam.AvgStemLength != nil {
		t.Fatalf("spam 应为无数据: %+v", spam)
	}
}

// UT-PIPE-02: 两条 ham 记录的频次表
func TestRunTwoHamRecords(t *testing.T) {
	comp := components(t, oneFile("v1,v2\nham,hello call\nham,hello world\n"), &memWriter{})
	rep, err := Run(context.Background(), comp, settings(1), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	ham := class(t, rep, contract.LabelHam)
	want := map[string]int{"hello": 2, "call": 1, "world": 1}
	if !reflect.DeepEqual(ham.Table, want) {
		t.Fatalf("table: %v", ham.Table)
	}
	if ham.Tokens != 4 || ham.Records != 2 {
		t.Fatalf("tokens/records: %d/%d", ham.Tokens, ham.Records)
	}
	wantTop := []contract.StemCount{{Stem: "hello", Count: 2}, {Stem: "call", Count: 1}, {Stem: "world", Count: 1}}
	if !reflect.DeepEqual(ham.Top, wantTop) {
		t.Fatalf("top: %v", ham.Top)
	}
}

// UT-PIPE-03: 空文本记录贯穿各阶段且不报错
func TestRunEmptyText(t *testing.T) {
	comp := components(t, oneFile("v1,v2\nspam,123 !!!\nspam\n"), &memWriter{})
	rep, err := Run(context.Background(), comp, settings(1), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	spam := class(t, rep, contract.LabelSpam)
	if spam.Records != 2 || spam.EmptyRecords != 2 || spam.Tokens != 0 {
		t.Fatalf("spam: %+v", spam)
	}
	for _, r := range rep.Records {
		if r.Normalized != "" || r.Filtered != "" || r.Stemmed != "" {
			t.Fatalf("空文本应在各阶段为空串: %+v", r)
		}
	}
}

// UT-PIPE-04: reject 策略下未知标签在任何变换前失败
func TestRunUnknownLabelRejectedBeforeTransform(t *testing.T) {
	w := &memWriter{}
	comp := components(t, oneFile("v1,v2\nham,hi there\npromo,win cash\n"), w)
	cn := &countingNormalizer{inner: comp.Normalizer}
	comp.Normalizer = cn
	_, err := Run(context.Background(), comp, settings(1), nil)
	if !errors.Is(err, contract.ErrUnknownLabel) {
		t.Fatalf("应报 ErrUnknownLabel: %v", err)
	}
	if cn.calls != 0 {
		t.Fatalf("失败应发生在归一化之前, calls=%d", cn.calls)
	}
	if len(w.order) != 0 {
		t.Fatalf("失败时不得写出工件")
	}
}

// UT-PIPE-05: ignore 与 bucket 策略
func TestRunLabelPolicies(t *testing.T) {
	body := "v1,v2\nham,hi there\npromo,win cash\nspam,free prize\n"
	set := settings(1)
	set.Policy = aggregate.PolicyIgnore
	rep, err := Run(context.Background(), components(t, oneFile(body), &memWriter{}), set, nil)
	if err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if rep.Ignored != 1 || len(rep.Classes) != 2 {
		t.Fatalf("ignore: ignored=%d classes=%d", rep.Ignored, len(rep.Classes))
	}

	set.Policy = aggregate.PolicyBucket
	rep, err = Run(context.Background(), components(t, oneFile(body), &memWriter{}), set, nil)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	want := []contract.Label{"ham", "spam", "promo"}
	if !reflect.DeepEqual(rep.Labels, want) {
		t.Fatalf("bucket labels: %v", rep.Labels)
	}
}

// UT-PIPE-06: 源头解析错误整批中止
func TestRunParseErrorAborts(t *testing.T) {
	w := &memWriter{}
	comp := components(t, oneFile("label,text\nham,hi\n"), w)
	_, err := Run(context.Background(), comp, settings(1), nil)
	if !errors.Is(err, contract.ErrSchema) {
		t.Fatalf("应报 ErrSchema: %v", err)
	}
	if len(w.order) != 0 {
		t.Fatalf("失败时不得写出工件")
	}
}

// UT-PIPE-07: 顺序与并发结果一致
func TestRunParallelEqualsSequential(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("v1,v2\n")
	words := []string{"free", "winning", "calls", "tomorrow", "prize", "txt", "meeting", "lunch", "sorry", "claim"}
	for i := 0; i < 3000; i++ {
		label := "ham"
		if i%3 == 0 {
			label = "spam"
		}
		fmt.Fprintf(&sb, "%s,\"%s %s, %d %s!\"\n", label, words[i%10], words[(i*7)%10], i, words[(i*3)%10])
	}
	body := sb.String()

	seq, err := Run(context.Background(), components(t, oneFile(body), &memWriter{}), settings(1), nil)
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	for _, workers := range []int{2, 8, 64} {
		par, err := Run(context.Background(), components(t, oneFile(body), &memWriter{}), settings(workers), nil)
		if err != nil {
			t.Fatalf("par %d: %v", workers, err)
		}
		if !reflect.DeepEqual(seq, par) {
			t.Fatalf("并发 %d 结果与顺序不一致", workers)
		}
	}
}

// UT-PIPE-08: 不变量校验开关
func TestRunVerifyInvariants(t *testing.T) {
	body := "v1,v2\nham,Hello!\n"
	comp := components(t, oneFile(body), &memWriter{})
	comp.Normalizer = rawNormalizer{}
	_, err := Run(context.Background(), comp, settings(1), nil)
	if !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("应报 ErrInvariantViolation: %v", err)
	}

	set := settings(4)
	set.VerifyInvariants = false
	comp = components(t, oneFile(body), &memWriter{})
	comp.Normalizer = rawNormalizer{}
	if _, err := Run(context.Background(), comp, set, nil); err != nil {
		t.Fatalf("关闭校验后应成功: %v", err)
	}
}

// UT-PIPE-09: Store 接收最终报告；失败上抛
func TestRunStore(t *testing.T) {
	st := &memStore{}
	comp := components(t, oneFile("v1,v2\nham,hello world\n"), &memWriter{})
	comp.Store = st
	rep, err := Run(context.Background(), comp, settings(1), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.saved) != 1 || st.saved[0].RunID != rep.RunID {
		t.Fatalf("store 未收到报告")
	}

	comp.Store = &memStore{err: errors.New("disk full")}
	if _, err := Run(context.Background(), comp, settings(1), nil); err == nil || !strings.Contains(err.Error(), "store save") {
		t.Fatalf("store 错误应上抛: %v", err)
	}
}

// UT-PIPE-10: 写出失败上抛；工件顺序稳定
func TestRunWriterErrorAndOrder(t *testing.T) {
	comp := components(t, oneFile("v1,v2\nham,hello\n"), &memWriter{err: contract.ErrPathInvalid})
	if _, err := Run(context.Background(), comp, settings(1), nil); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("writer 错误应上抛: %v", err)
	}

	w := &memWriter{}
	comp = components(t, oneFile("v1,v2\nham,hello\n"), w)
	comp.Reporters = append(comp.Reporters, repjson.New(&repjson.Options{FileName: "second.json"}))
	if _, err := Run(context.Background(), comp, settings(1), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(w.order, []contract.ArtifactID{"report.json", "second.json"}) {
		t.Fatalf("工件顺序: %v", w.order)
	}
}

// UT-PIPE-11: 多文件按 Reader 顺序拼接
func TestRunMultipleFiles(t *testing.T) {
	r := memReader{
		names: []string{"a.csv", "b.csv"},
		files: map[string]string{"a.csv": "v1,v2\nham,alpha\n", "b.csv": "v1,v2\nham,beta\n"},
	}
	rep, err := Run(context.Background(), components(t, r, &memWriter{}), settings(1), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.Records) != 2 || rep.Records[0].FileID != "a.csv" || rep.Records[1].FileID != "b.csv" {
		t.Fatalf("records: %+v", rep.Records)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, components(t, oneFile("v1,v2\nham,hi\n"), &memWriter{}), settings(1), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回 context.Canceled: %v", err)
	}
}

func TestSanity(t *testing.T) {
	good := components(t, oneFile(""), &memWriter{})
	if err := sanity(good, settings(1)); err != nil {
		t.Fatalf("sanity: %v", err)
	}
	bad := good
	bad.Stemmer = nil
	if sanity(bad, settings(1)) == nil {
		t.Fatalf("缺组件应报错")
	}
	bad = good
	bad.Reporters = nil
	if sanity(bad, settings(1)) == nil {
		t.Fatalf("无 reporter 应报错")
	}
	s := settings(1)
	s.Inputs = nil
	if sanity(good, s) == nil {
		t.Fatalf("无输入应报错")
	}
	s = settings(0)
	if sanity(good, s) == nil {
		t.Fatalf("并发 0 应报错")
	}
	if _, err := Run(context.Background(), bad, settings(1), nil); err == nil || !strings.HasPrefix(err.Error(), "sanity") {
		t.Fatalf("Run 应先做 sanity: %v", err)
	}
}

type upper struct{}

func (upper) Stem(s string) string { return strings.ToUpper(s) }

func TestStemText(t *testing.T) {
	cases := map[string]string{"": "", "  ": "", "a b": "A B", "  a   b ": "A B"}
	for in, want := range cases {
		if got := StemText(upper{}, in); got != want {
			t.Fatalf("StemText(%q)=%q want %q", in, got, want)
		}
	}
}

func TestForEachStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	for _, workers := range []int{1, 4} {
		err := forEach(context.Background(), 100, workers, func(i int) error {
			if i == 37 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Fatalf("workers=%d: %v", workers, err)
		}
	}
	var mu sync.Mutex
	seen := map[int]bool{}
	if err := forEach(context.Background(), 10, 3, func(i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	}); err != nil || len(seen) != 10 {
		t.Fatalf("应覆盖全部下标: %v %d", err, len(seen))
	}
}

package stress

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	cfgpkg "spamstat/internal/config"
	"spamstat/internal/pipeline"
	"spamstat/pkg/contract"
)

var vocab = []string{
	"free", "call", "claim", "prize", "winner", "mobile", "mobiles", "txt", "reply", "stop",
	"going", "home", "later", "tonight", "love", "lunch", "running", "runs", "happily", "meeting",
	"the", "and", "you", "are", "have", "been", "to", "is", "at", "of",
}

// genCorpus 生成确定性的 v1/v2 语料（ASCII，兼容 ISO-8859-1）。
func genCorpus(t *testing.T, path string, n int) {
	t.Helper()
	rnd := rand.New(rand.NewSource(42))
	var b strings.Builder
	b.WriteString("v1,v2,,,\n")
	for i := 0; i < n; i++ {
		label := "ham"
		if rnd.Intn(4) == 0 {
			label = "spam"
		}
		words := make([]string, 3+rnd.Intn(20))
		for j := range words {
			w := vocab[rnd.Intn(len(vocab))]
			if rnd.Intn(5) == 0 {
				w = strings.ToUpper(w[:1]) + w[1:] + "!"
			}
			words[j] = w
		}
		fmt.Fprintf(&b, "%s,\"%s %d\",,,\n", label, strings.Join(words, " "), rnd.Intn(1000))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
}

func baseConfig(t *testing.T, input, outDir string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = []string{input}
	cfg.Logging.Level = "error"
	w, err := cfgpkg.WithOutputDir(cfg.Options.Writer, outDir)
	if err != nil {
		t.Fatalf("writer options: %v", err)
	}
	cfg.Options.Writer = w
	return cfg
}

// runPipeline 执行完整流水线。
func runPipeline(t *testing.T, cfg cfgpkg.Config) (contract.Report, error) {
	t.Helper()
	ctx := context.Background()
	comp, set, err := cfgpkg.Assemble(ctx, cfg)
	if err != nil {
		return contract.Report{}, err
	}
	return pipeline.Run(ctx, comp, set, nil)
}

// TestStress 在不同并发度下运行流水线：结果与顺序执行一致，并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("short 模式跳过压力测试")
	}
	in := filepath.Join(t.TempDir(), "corpus.csv")
	genCorpus(t, in, 20000)

	want, err := runPipeline(t, baseConfig(t, in, t.TempDir()))
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	levels := []int{1, 8, 16, 32, 64}
	for _, conc := range levels {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			const runs = 5
			successes := 0
			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				cfg := baseConfig(t, in, t.TempDir())
				cfg.Concurrency = conc
				start := time.Now()
				got, err := runPipeline(t, cfg)
				dur := time.Since(start)
				if err != nil {
					t.Errorf("run %d: %v", i, err)
					continue
				}
				if !reflect.DeepEqual(got.Classes, want.Classes) || !reflect.DeepEqual(got.Records, want.Records) {
					t.Fatalf("run %d: 并发结果与顺序执行不一致", i)
				}
				successes++
				latencies = append(latencies, dur)
			}
			if successes == 0 {
				t.Fatalf("全部运行失败")
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			p95 := latencies[idx]
			t.Logf("并发%d 成功率%.2f 平均%v 95%%延迟%v", conc, float64(successes)/float64(runs), avg, p95)
		})
	}
}

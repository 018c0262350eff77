package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "spamstat/internal/config"
	"spamstat/internal/diag"
	"spamstat/internal/pipeline"
	"spamstat/pkg/contract"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期失败；3 配置/装配失败。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// cliOptions: 命令行覆盖项（未显式给出的旗标不参与合并）。
type cliOptions struct {
	config      string
	concurrency int
	topN        int
	labelPolicy string
	stemmer     string
	outputDir   string
	metricsFile string
	status      bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	code := exitOK
	root := newRootCmd(&code)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fprintf(os.Stderr, "参数错误: %v\n", err)
		return exitConfig
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var o cliOptions
	root := &cobra.Command{
		Use:   "spamstat [roots...]",
		Short: "统计垃圾短信语料的分类词干频次与长度分布",
		Long: "读取带标签的短信语料（CSV/TSV），依次归一化、去停用词、词干化，\n" +
			"输出每个类别的频次表、top-N 与长度统计。roots 为文件/目录，或 \"-\" 表示 STDIN。",
		// 存在子命令时需显式允许 roots 位置参数
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = execute(cmd, o, args)
			return nil
		},
	}
	f := root.Flags()
	f.StringVar(&o.config, "config", "", "配置文件路径（JSON 或 YAML）；缺省读取 ./config.json（若存在）")
	f.IntVar(&o.concurrency, "concurrency", 0, "并发度（覆盖配置）")
	f.IntVar(&o.topN, "top-n", cfgpkg.DefaultTopN, "每类 top 视图长度；0 表示全部（覆盖配置）")
	f.StringVar(&o.labelPolicy, "label-policy", "", "未知标签处理 reject|ignore|bucket（覆盖配置）")
	f.StringVar(&o.stemmer, "stemmer", "", "词干器实现名（覆盖配置）")
	f.StringVar(&o.outputDir, "output-dir", "", "输出目录（覆盖 writer output_dir）")
	f.StringVar(&o.metricsFile, "metrics-file", "", "运行结束后写出 Prometheus 文本格式指标")
	f.BoolVar(&o.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	root.AddCommand(newInitCmd(code))
	return root
}

func execute(cmd *cobra.Command, o cliOptions, roots []string) int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := cfgpkg.LoadDotEnv(".env"); err != nil {
		fprintf(os.Stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}

	cfg, err := loadConfig(o.config)
	if err != nil {
		fprintf(os.Stderr, "配置解析失败: %v\n", err)
		return exitConfig
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		return exitConfig
	}
	cfg = cfgpkg.Merge(cfg, overEnv)
	cfg = cfgpkg.Merge(cfg, cliOverlay(cmd, o, roots))

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		// 打印有效配置，便于诊断
		_ = dumpConfig(os.Stderr, cfg)
		return exitConfig
	}

	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, set, err := cfgpkg.Assemble(ctx, cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}
	if comp.Store != nil {
		defer comp.Store.Close()
	}
	set.RunID = corrID

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(os.Stderr, o.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	stemmer := cfg.Components.Stemmer
	term.RunStart(cfg.Concurrency, stemmer)

	logger.DebugStart("config", "effective", "", "", map[string]string{
		"inputs_count": strconv.Itoa(len(cfg.Inputs)),
		"concurrency":  strconv.Itoa(cfg.Concurrency),
		"top_n":        strconv.Itoa(set.TopN),
		"labels":       strings.Join(cfg.Labels, ","),
		"label_policy": string(set.Policy),
		"parser":       cfg.Components.Parser,
		"normalizer":   cfg.Components.Normalizer,
		"filter":       cfg.Components.Filter,
		"stemmer":      stemmer,
		"reporters":    strings.Join(cfg.Components.Reporters, ","),
		"writer":       cfg.Components.Writer,
		"store":        cfg.Components.Store,
		"output_dir":   cfgpkg.EffectiveOutputDir(cfg),
	})

	t := logger.Start("pipeline", "run")
	rep, err := pipelineRun(ctx, comp, set, logger)
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		writeMetrics(cfg.Metrics.File)
		return exitRuntime
	}
	t.Finish("run", int64(len(rep.Classes)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, time.Since(start))

	printSummary(cmd.OutOrStdout(), rep)
	if !writeMetrics(cfg.Metrics.File) {
		return exitRuntime
	}
	return exitOK
}

// loadConfig: 来源优先级 SPAMSTAT_CONFIG_JSON > --config > SPAMSTAT_CONFIG_FILE > ./config.json|yaml。
func loadConfig(path string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err := cfgpkg.LoadJSON("", []byte(s))
		if err != nil {
			return cfg, err
		}
		return cfgpkg.Merge(cfg, base), nil
	}
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path == "" {
		return cfg, nil
	}
	base, err := cfgpkg.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	return cfgpkg.Merge(cfg, base), nil
}

func cliOverlay(cmd *cobra.Command, o cliOptions, roots []string) cfgpkg.Config {
	var over cfgpkg.Config
	if o.concurrency > 0 {
		over.Concurrency = o.concurrency
	}
	if cmd.Flags().Changed("top-n") {
		v := o.topN
		over.TopN = &v
	}
	over.LabelPolicy = o.labelPolicy
	over.Components.Stemmer = o.stemmer
	over.OutputDir = o.outputDir
	over.Metrics.File = o.metricsFile
	if len(roots) > 0 {
		over.Inputs = roots
	}
	return over
}

// printSummary 向 stdout 输出每类一行的简要统计。
func printSummary(w io.Writer, rep contract.Report) {
	for _, c := range rep.Classes {
		line := fmt.Sprintf("%s\trecords=%d\ttokens=%d\tdistinct=%d", c.Label, c.Records, c.Tokens, c.DistinctStems)
		if c.Note != "" {
			line += "\t" + c.Note
		} else if len(c.Top) > 0 {
			n := min(len(c.Top), 5)
			tops := make([]string, n)
			for i := 0; i < n; i++ {
				tops[i] = fmt.Sprintf("%s:%d", c.Top[i].Stem, c.Top[i].Count)
			}
			line += "\ttop=" + strings.Join(tops, ",")
		}
		_, _ = fmt.Fprintln(w, line)
	}
	if rep.Ignored > 0 {
		_, _ = fmt.Fprintf(w, "ignored=%d\n", rep.Ignored)
	}
}

func writeMetrics(path string) bool {
	if strings.TrimSpace(path) == "" {
		return true
	}
	if err := diag.WriteMetricsFile(path); err != nil {
		fprintf(os.Stderr, "指标写出失败: %v\n", err)
		return false
	}
	return true
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = w.Write(append([]byte("有效配置:\n"), b...))
	_, _ = w.Write([]byte("\n"))
	return nil
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出目录可写性。
// 规则：
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：检查最近的已存在祖先目录可写（writer 会逐级创建）。
// 仅针对 fs writer 生效；其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	dir := filepath.Clean(cfgpkg.EffectiveOutputDir(cfg))
	for {
		st, err := os.Stat(dir)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("路径存在但不是目录: %s", dir)
			}
			f, err := os.CreateTemp(dir, ".wcheck-*")
			if err != nil {
				return err
			}
			name := f.Name()
			_ = f.Close()
			return os.Remove(name)
		}
		if !os.IsNotExist(err) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		dir = parent
	}
}

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spamstat/internal/aggregate"
	"spamstat/internal/pipeline"
	"spamstat/pkg/contract"
	"spamstat/pkg/registry"
)

// DefaultOutputDir: writer 未给出 output_dir 且无顶层覆盖时使用的目录。
const DefaultOutputDir = "out"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息使用 JSON 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if err := validate.Struct(cfg); err != nil {
		return structError(err)
	}
	// 标签按解析边界同样的规则规范化后仍须唯一
	seen := map[contract.Label]bool{}
	for _, l := range normLabels(cfg.Labels) {
		if seen[l] {
			return fmt.Errorf("config: duplicate label %q", l)
		}
		seen[l] = true
	}
	if _, err := aggregate.ParsePolicy(cfg.LabelPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	d := Defaults().Components
	c := cfg.Components
	if name := effName(c.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(c.Parser, d.Parser); registry.Parser[name] == nil {
		return fmt.Errorf("config: parser %q not registered", name)
	}
	if name := effName(c.Normalizer, d.Normalizer); registry.Normalizer[name] == nil {
		return fmt.Errorf("config: normalizer %q not registered", name)
	}
	if name := effName(c.Filter, d.Filter); registry.Filter[name] == nil {
		return fmt.Errorf("config: filter %q not registered", name)
	}
	if name := effName(c.Stemmer, d.Stemmer); registry.Stemmer[name] == nil {
		return fmt.Errorf("config: stemmer %q not registered (have %s)", name, strings.Join(registry.Names(registry.Stemmer), ", "))
	}
	for _, name := range reporters(c, d) {
		if registry.Reporter[name] == nil {
			return fmt.Errorf("config: reporter %q not registered", name)
		}
	}
	if name := effName(c.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if name := strings.TrimSpace(c.Store); name != "" && registry.Store[name] == nil {
		return fmt.Errorf("config: store %q not registered", name)
	}
	return nil
}

func structError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
// 返回的 Components.Store 非空时由调用方负责 Close。
func Assemble(ctx context.Context, cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults().Components
	c := cfg.Components
	var comp pipeline.Components
	var err error

	if comp.Reader, err = registry.Reader[effName(c.Reader, d.Reader)](cfg.Options.Reader); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader: %w", err)
	}
	if comp.Parser, err = registry.Parser[effName(c.Parser, d.Parser)](cfg.Options.Parser); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("parser: %w", err)
	}
	if comp.Normalizer, err = registry.Normalizer[effName(c.Normalizer, d.Normalizer)](cfg.Options.Normalizer); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("normalizer: %w", err)
	}
	if comp.Filter, err = registry.Filter[effName(c.Filter, d.Filter)](cfg.Options.Filter); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("filter: %w", err)
	}
	sn := effName(c.Stemmer, d.Stemmer)
	if comp.Stemmer, err = registry.Stemmer[sn](cfg.Options.Stemmer[sn]); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("stemmer %s: %w", sn, err)
	}
	for _, name := range reporters(c, d) {
		r, err := registry.Reporter[name](cfg.Options.Reporter[name])
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reporter %s: %w", name, err)
		}
		comp.Reporters = append(comp.Reporters, r)
	}
	wraw, err := writerOptions(cfg)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if comp.Writer, err = registry.Writer[effName(c.Writer, d.Writer)](wraw); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer: %w", err)
	}
	// Store 最后打开，避免前序失败时泄漏连接
	if name := strings.TrimSpace(c.Store); name != "" {
		if comp.Store, err = registry.Store[name](ctx, cfg.Options.Store); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("store %s: %w", name, err)
		}
	}

	policy, _ := aggregate.ParsePolicy(cfg.LabelPolicy)
	set := pipeline.Settings{
		Inputs:           cloneStrings(cfg.Inputs),
		Concurrency:      cfg.Concurrency,
		TopN:             DefaultTopN,
		Labels:           normLabels(cfg.Labels),
		Policy:           policy,
		VerifyInvariants: true,
	}
	if cfg.TopN != nil {
		set.TopN = *cfg.TopN
	}
	if cfg.VerifyInvariants != nil {
		set.VerifyInvariants = *cfg.VerifyInvariants
	}
	return comp, set, nil
}

// EffectiveOutputDir 返回 fs writer 最终使用的输出目录。
func EffectiveOutputDir(cfg Config) string {
	if s := strings.TrimSpace(cfg.OutputDir); s != "" {
		return s
	}
	var w struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &w)
	}
	if s := strings.TrimSpace(w.OutputDir); s != "" {
		return s
	}
	return DefaultOutputDir
}

// writerOptions: 顶层 output_dir 优先，其次 writer 选项，最后 DefaultOutputDir。
func writerOptions(cfg Config) (json.RawMessage, error) {
	if effName(cfg.Components.Writer, Defaults().Components.Writer) != "fs" {
		return cfg.Options.Writer, nil
	}
	return WithOutputDir(cfg.Options.Writer, EffectiveOutputDir(cfg))
}

func reporters(c, d Components) []string {
	if len(c.Reporters) > 0 {
		return c.Reporters
	}
	return d.Reporters
}

func normLabels(in []string) []contract.Label {
	out := make([]contract.Label, len(in))
	for i, l := range in {
		out[i] = contract.Label(strings.ToLower(strings.TrimSpace(l)))
	}
	return out
}

func effName(got, def string) string {
	if got = strings.TrimSpace(got); got == "" {
		return def
	}
	return got
}

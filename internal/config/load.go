package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "SPAMSTAT_"

// DefaultTopN: 报告默认保留的高频词干数。
const DefaultTopN = 20

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	top := DefaultTopN
	verify := true
	return Config{
		Concurrency:      1,
		TopN:             &top,
		Labels:           []string{"ham", "spam"},
		LabelPolicy:      "reject",
		VerifyInvariants: &verify,
		Logging:          Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:     "fs",
			Parser:     "csv",
			Normalizer: "alpha",
			Filter:     "stopword",
			Stemmer:    "snowball",
			Reporters:  []string{"json", "csv"},
			Writer:     "fs",
		},
	}
}

// LoadFile 按扩展名解析配置文件：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(b)
	default:
		return LoadJSON(path, nil)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode json: %w", err)
	}
	return cfg, nil
}

// LoadYAML 将 YAML 文档转为等价 JSON 后按 LoadJSON 的严格规则解析，
// 组件 Options 子树因此同样以原样 JSON 交给工厂。
func LoadYAML(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if doc == nil {
		return Config{}, errors.New("config: empty yaml document")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("config: yaml to json: %w", err)
	}
	return LoadJSON("", b)
}

// LoadDotEnv 读取 .env（若存在）到进程环境；已存在的变量不被覆盖。
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	// TopN=0 有语义（不截断），以指针区分“未设置”
	if over.TopN != nil {
		v := *over.TopN
		out.TopN = &v
	}
	if len(over.Labels) > 0 {
		out.Labels = cloneStrings(over.Labels)
	}
	if s := strings.TrimSpace(over.LabelPolicy); s != "" {
		out.LabelPolicy = s
	}
	if over.VerifyInvariants != nil {
		v := *over.VerifyInvariants
		out.VerifyInvariants = &v
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if s := strings.TrimSpace(over.OutputDir); s != "" {
		out.OutputDir = s
	}
	if s := strings.TrimSpace(over.Metrics.File); s != "" {
		out.Metrics.File = s
	}

	// 组件名（空不覆盖）
	c := &out.Components
	setName(&c.Reader, over.Components.Reader)
	setName(&c.Parser, over.Components.Parser)
	setName(&c.Normalizer, over.Components.Normalizer)
	setName(&c.Filter, over.Components.Filter)
	setName(&c.Stemmer, over.Components.Stemmer)
	setName(&c.Writer, over.Components.Writer)
	setName(&c.Store, over.Components.Store)
	if len(over.Components.Reporters) > 0 {
		c.Reporters = cloneStrings(over.Components.Reporters)
	}

	// Options（完整替换对应键）
	o := &out.Options
	setRaw(&o.Reader, over.Options.Reader)
	setRaw(&o.Parser, over.Options.Parser)
	setRaw(&o.Normalizer, over.Options.Normalizer)
	setRaw(&o.Filter, over.Options.Filter)
	setRaw(&o.Writer, over.Options.Writer)
	setRaw(&o.Store, over.Options.Store)
	o.Stemmer = mergeRawMap(o.Stemmer, over.Options.Stemmer)
	o.Reporter = mergeRawMap(o.Reporter, over.Options.Reporter)
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 SPAMSTAT_；集合之外的键忽略；数值解析失败返回错误。
// 支持：INPUTS, CONCURRENCY, TOP_N, LABELS, LABEL_POLICY, VERIFY_INVARIANTS,
// LOG_LEVEL, LOG_DIR, METRICS_FILE, OUTPUT_DIR, COMPONENTS_*,
// 以及 OPTIONS_<READER|PARSER|NORMALIZER|FILTER|WRITER|STORE>_JSON。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免清空 config 文件中的值
			continue
		}
		var err error
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			over.Concurrency, err = atoi(val)
		case "TOP_N":
			var v int
			if v, err = atoi(val); err == nil {
				over.TopN = &v
			}
		case "LABELS":
			over.Labels = splitComma(val)
		case "LABEL_POLICY":
			over.LabelPolicy = val
		case "VERIFY_INVARIANTS":
			var b bool
			if b, err = strconv.ParseBool(val); err == nil {
				over.VerifyInvariants = &b
			}
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "METRICS_FILE":
			over.Metrics.File = val
		case "OUTPUT_DIR":
			over.OutputDir = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_PARSER":
			over.Components.Parser = val
		case "COMPONENTS_NORMALIZER":
			over.Components.Normalizer = val
		case "COMPONENTS_FILTER":
			over.Components.Filter = val
		case "COMPONENTS_STEMMER":
			over.Components.Stemmer = val
		case "COMPONENTS_REPORTERS":
			over.Components.Reporters = splitComma(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "COMPONENTS_STORE":
			over.Components.Store = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader, err = rawJSON(val)
		case "OPTIONS_PARSER_JSON":
			over.Options.Parser, err = rawJSON(val)
		case "OPTIONS_NORMALIZER_JSON":
			over.Options.Normalizer, err = rawJSON(val)
		case "OPTIONS_FILTER_JSON":
			over.Options.Filter, err = rawJSON(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer, err = rawJSON(val)
		case "OPTIONS_STORE_JSON":
			over.Options.Store, err = rawJSON(val)
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

// WithOutputDir 在 writer 原样选项上设置 output_dir，其余键保持不变。
func WithOutputDir(raw json.RawMessage, dir string) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("config: writer options: %w", err)
		}
	}
	v, err := json.Marshal(dir)
	if err != nil {
		return nil, err
	}
	m["output_dir"] = v
	return json.Marshal(m)
}

func setName(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setRaw(dst *json.RawMessage, v json.RawMessage) {
	if len(v) > 0 {
		*dst = cloneRaw(v)
	}
}

func mergeRawMap(base, over map[string]json.RawMessage) map[string]json.RawMessage {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]json.RawMessage, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = cloneRaw(v)
	}
	return out
}

func rawJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, errors.New("invalid json")
	}
	return json.RawMessage(s), nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

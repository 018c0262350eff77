package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "spamstat/internal/config"
)

func newInitCmd(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在指定目录生成默认 config.json 与 .env 模板（已存在则跳过，不覆盖）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			*code = initConfig(dir)
			return nil
		},
	}
}

func initConfig(dir string) int {
	// "-" 输出到 stdout，不生成 .env
	if dir == "-" {
		if err := writeConfig("-", cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			return exitConfig
		}
		return exitOK
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
		return exitConfig
	}
	if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
		if !os.IsExist(err) {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			return exitConfig
		}
		fprintf(os.Stderr, "提示：config.json 已存在（已跳过）\n")
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	return exitOK
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// dotEnvKeys: .env 模板中列出的覆盖项（与 config.EnvOverlay 支持的键一致）。
var dotEnvKeys = []struct{ section, key string }{
	{"配置来源（可二选一）", "CONFIG_FILE"},
	{"", "CONFIG_JSON"},
	{"运行参数覆盖", "INPUTS"},
	{"", "CONCURRENCY"},
	{"", "TOP_N"},
	{"", "LABELS"},
	{"", "LABEL_POLICY"},
	{"", "VERIFY_INVARIANTS"},
	{"", "OUTPUT_DIR"},
	{"", "LOG_LEVEL"},
	{"", "LOG_DIR"},
	{"", "METRICS_FILE"},
	{"组件选择", "COMPONENTS_READER"},
	{"", "COMPONENTS_PARSER"},
	{"", "COMPONENTS_NORMALIZER"},
	{"", "COMPONENTS_FILTER"},
	{"", "COMPONENTS_STEMMER"},
	{"", "COMPONENTS_REPORTERS"},
	{"", "COMPONENTS_WRITER"},
	{"", "COMPONENTS_STORE"},
	{"组件选项（原样 JSON，整体替换）", "OPTIONS_READER_JSON"},
	{"", "OPTIONS_PARSER_JSON"},
	{"", "OPTIONS_NORMALIZER_JSON"},
	{"", "OPTIONS_FILTER_JSON"},
	{"", "OPTIONS_WRITER_JSON"},
	{"", "OPTIONS_STORE_JSON"},
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
// 仅创建文件；不覆盖，不合并。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# spamstat .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件 > 默认值\n")
	b.WriteString("# 空值表示未设置。\n")
	for _, k := range dotEnvKeys {
		if k.section != "" {
			b.WriteString("\n# " + k.section + "\n")
		}
		b.WriteString(cfgpkg.EnvPrefix + k.key + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

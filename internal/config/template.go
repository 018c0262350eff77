package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认输入为工作目录下的 spam.csv（ISO-8859-1，v1/v2 列）；
// - Writer 输出到 ./out 目录，Store 默认关闭；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:           []string{"spam.csv"},
		Concurrency:      d.Concurrency,
		TopN:             d.TopN,
		Labels:           d.Labels,
		LabelPolicy:      d.LabelPolicy,
		VerifyInvariants: d.VerifyInvariants,
		Logging:          d.Logging,
		Metrics:          Metrics{File: ""},
		Components:       d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "allow_exts": [".csv", ".tsv", ".txt"]
}`)
	cfg.Options.Parser = json.RawMessage(`{
  "label_column": "v1",
  "text_column": "v2",
  "header": true,
  "encoding": "iso-8859-1",
  "comma": ",",
  "lazy_quotes": true
}`)
	cfg.Options.Normalizer = json.RawMessage(`{
  "fold_diacritics": false
}`)
	cfg.Options.Filter = json.RawMessage(`{
  "language": "english",
  "path": "",
  "extra": []
}`)
	cfg.Options.Stemmer = map[string]json.RawMessage{
		"snowball": json.RawMessage(`{"stem_stopwords": true}`),
		"porter":   json.RawMessage(`{}`),
		"identity": json.RawMessage(`{}`),
	}
	cfg.Options.Reporter = map[string]json.RawMessage{
		"json": json.RawMessage(`{"indent": true, "include_records": false, "file_name": "report.json"}`),
		"csv":  json.RawMessage(`{"include_records": true, "lengths": true}`),
	}
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": true,
  "overwrite": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.Store = json.RawMessage(`{
  "path": "out/spamstat.db",
  "busy_timeout_ms": 5000
}`)
	return cfg
}

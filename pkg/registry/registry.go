package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"spamstat/pkg/contract"
	stopword "spamstat/plugins/filter/stopword"
	alpha "spamstat/plugins/normalizer/alpha"
	pcsv "spamstat/plugins/parser/csv"
	rfs "spamstat/plugins/reader/filesystem"
	repcsv "spamstat/plugins/reporter/csv"
	repjson "spamstat/plugins/reporter/json"
	sidentity "spamstat/plugins/stemmer/identity"
	sporter "spamstat/plugins/stemmer/porter"
	ssnowball "spamstat/plugins/stemmer/snowball"
	stsqlite "spamstat/plugins/store/sqlite"
	wfs "spamstat/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewParser 工厂签名。
type NewParser func(raw json.RawMessage) (contract.Parser, error)

// NewNormalizer 工厂签名。
type NewNormalizer func(raw json.RawMessage) (contract.Normalizer, error)

// NewFilter 工厂签名。
type NewFilter func(raw json.RawMessage) (contract.Filter, error)

// NewStemmer 工厂签名。
type NewStemmer func(raw json.RawMessage) (contract.Stemmer, error)

// NewReporter 工厂签名。
type NewReporter func(raw json.RawMessage) (contract.Reporter, error)

// NewWriter 工厂签名。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// NewStore 工厂签名：打开数据库属于阻塞操作，需要 ctx。
type NewStore func(ctx context.Context, raw json.RawMessage) (contract.Store, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Parser 工厂注册表。
var Parser = map[string]NewParser{
	// csv: 分隔符表格（默认 ISO-8859-1、v1/v2 列）
	"csv": func(raw json.RawMessage) (contract.Parser, error) {
		var opts pcsv.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pcsv.New(&opts)
	},
}

// Normalizer 工厂注册表。
var Normalizer = map[string]NewNormalizer{
	"alpha": func(raw json.RawMessage) (contract.Normalizer, error) {
		var opts alpha.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return alpha.New(&opts), nil
	},
}

// Filter 工厂注册表。
var Filter = map[string]NewFilter{
	// stopword: 内置 NLTK 英文停用词表，可替换/追加
	"stopword": func(raw json.RawMessage) (contract.Filter, error) {
		var opts stopword.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return stopword.New(&opts)
	},
}

// Stemmer 工厂注册表。
var Stemmer = map[string]NewStemmer{
	// snowball: Porter2（默认）
	"snowball": func(raw json.RawMessage) (contract.Stemmer, error) {
		var opts ssnowball.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ssnowball.New(&opts), nil
	},
	// porter: 经典 Porter
	"porter": func(raw json.RawMessage) (contract.Stemmer, error) {
		var opts struct{}
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sporter.New(), nil
	},
	"identity": func(raw json.RawMessage) (contract.Stemmer, error) {
		var opts struct{}
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sidentity.Stemmer{}, nil
	},
}

// Reporter 工厂注册表。
var Reporter = map[string]NewReporter{
	"json": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts repjson.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return repjson.New(&opts), nil
	},
	"csv": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts repcsv.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return repcsv.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Store 工厂注册表（可选组件）。
var Store = map[string]NewStore{
	"sqlite": func(ctx context.Context, raw json.RawMessage) (contract.Store, error) {
		var opts stsqlite.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return stsqlite.New(ctx, &opts)
	},
}

// Names 返回注册表键的排序列表（错误提示与模板使用）。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"spamstat/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口：空选项可构造，未知字段被拒绝。
func TestFactories(t *testing.T) {
	good := json.RawMessage(`{}`)
	bad := json.RawMessage(`{"x":1}`)
	type factory func(json.RawMessage) (any, error)
	cases := map[string]factory{
		"reader/fs":         func(r json.RawMessage) (any, error) { return Reader["fs"](r) },
		"parser/csv":        func(r json.RawMessage) (any, error) { return Parser["csv"](r) },
		"normalizer/alpha":  func(r json.RawMessage) (any, error) { return Normalizer["alpha"](r) },
		"filter/stopword":   func(r json.RawMessage) (any, error) { return Filter["stopword"](r) },
		"stemmer/snowball":  func(r json.RawMessage) (any, error) { return Stemmer["snowball"](r) },
		"stemmer/porter":    func(r json.RawMessage) (any, error) { return Stemmer["porter"](r) },
		"stemmer/identity":  func(r json.RawMessage) (any, error) { return Stemmer["identity"](r) },
		"reporter/json":     func(r json.RawMessage) (any, error) { return Reporter["json"](r) },
		"reporter/csv":      func(r json.RawMessage) (any, error) { return Reporter["csv"](r) },
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f(good); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if _, err := f(nil); err != nil {
				t.Fatalf("%s nil 选项: %v", name, err)
			}
			if _, err := f(bad); err == nil {
				t.Fatalf("%s 未对未知字段报错", name)
			}
		})
	}
}

func TestWriterFactory(t *testing.T) {
	tmp := t.TempDir()
	if _, err := Writer["fs"](json.RawMessage(fmt.Sprintf(`{"output_dir":%q}`, tmp))); err != nil {
		t.Fatalf("writer: %v", err)
	}
	if _, err := Writer["fs"](json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"x":1}`, tmp))); err == nil {
		t.Fatalf("writer 未对未知字段报错")
	}
	if _, err := Writer["fs"](nil); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("writer 缺 output_dir 应报 ErrInvalidInput: %v", err)
	}
}

func TestStoreFactory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.db")
	st, err := Store["sqlite"](context.Background(), json.RawMessage(fmt.Sprintf(`{"path":%q}`, p)))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	_ = st.Close()
	if _, err := Store["sqlite"](context.Background(), json.RawMessage(`{}`)); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("store 缺 path 应报 ErrInvalidInput: %v", err)
	}
}

func TestOptionsReachComponents(t *testing.T) {
	st, err := Stemmer["snowball"](json.RawMessage(`{"stem_stopwords":false}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Stem("having"); got != "having" {
		t.Fatalf("stem_stopwords=false 未生效: %q", got)
	}
	if _, err := Parser["csv"](json.RawMessage(`{"encoding":"ebcdic"}`)); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("非法编码应报错: %v", err)
	}
	f, err := Filter["stopword"](json.RawMessage(`{"extra":["txt"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Filter("txt me now"); got != "" {
		t.Fatalf("extra 未生效: %q", got)
	}
}

func TestNames(t *testing.T) {
	if got := Names(Stemmer); !reflect.DeepEqual(got, []string{"identity", "porter", "snowball"}) {
		t.Fatalf("names: %v", got)
	}
}

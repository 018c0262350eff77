package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"spamstat/pkg/contract"
)

// Options 为表格语料解析器的可选配置。
type Options struct {
	// LabelColumn/TextColumn: 表头中的标签列与文本列名（大小写不敏感）。默认 v1/v2。
	LabelColumn string `json:"label_column"`
	TextColumn  string `json:"text_column"`
	// Header: 首行是否为表头。默认 true；为 false 时按 LabelIndex/TextIndex 取列。
	Header *bool `json:"header,omitempty"`
	// LabelIndex/TextIndex: 无表头时的列下标（0 起）。默认 0/1。
	LabelIndex *int `json:"label_index,omitempty"`
	TextIndex  *int `json:"text_index,omitempty"`
	// Encoding: "iso-8859-1"（默认，参考语料的编码）或 "utf-8"。
	Encoding string `json:"encoding"`
	// Comma: 分隔符，单字符；"\t" 或 "tab" 表示制表符。默认 ","。
	Comma string `json:"comma"`
	// LazyQuotes: 容忍未转义引号。默认 true。
	LazyQuotes *bool `json:"lazy_quotes,omitempty"`
}

// Parser 实现 contract.Parser。
type Parser struct {
	labelCol, textCol string
	header            bool
	labelIdx, textIdx int
	latin1            bool
	comma             rune
	lazy              bool
}

// New 校验选项并创建解析器。
func New(opts *Options) (*Parser, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	p := &Parser{
		labelCol: strings.ToLower(strings.TrimSpace(o.LabelColumn)),
		textCol:  strings.ToLower(strings.TrimSpace(o.TextColumn)),
		header:   true,
		labelIdx: 0,
		textIdx:  1,
		latin1:   true,
		comma:    ',',
		lazy:     true,
	}
	if p.labelCol == "" {
		p.labelCol = "v1"
	}
	if p.textCol == "" {
		p.textCol = "v2"
	}
	if o.Header != nil {
		p.header = *o.Header
	}
	if o.LabelIndex != nil {
		p.labelIdx = *o.LabelIndex
	}
	if o.TextIndex != nil {
		p.textIdx = *o.TextIndex
	}
	if p.labelIdx < 0 || p.textIdx < 0 || p.labelIdx == p.textIdx {
		return nil, fmt.Errorf("%w: label_index/text_index must be distinct and >= 0", contract.ErrInvalidInput)
	}
	switch strings.ToLower(strings.TrimSpace(o.Encoding)) {
	case "", "iso-8859-1", "latin1", "latin-1":
	case "utf-8", "utf8":
		p.latin1 = false
	default:
		return nil, fmt.Errorf("%w: encoding %q not supported", contract.ErrInvalidInput, o.Encoding)
	}
	switch c := o.Comma; c {
	case "":
	case `\t`, "tab", "\t":
		p.comma = '\t'
	default:
		r, size := utf8.DecodeRuneInString(c)
		if size != len(c) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("%w: comma must be a single character, got %q", contract.ErrInvalidInput, c)
		}
		p.comma = r
	}
	if o.LazyQuotes != nil {
		p.lazy = *o.LazyQuotes
	}
	return p, nil
}

var _ contract.Parser = (*Parser)(nil)

// Parse 读取整张表。任何结构或编码问题均包装 ErrSchema/ErrEncoding 返回。
func (p *Parser) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Record, error) {
	if p.latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	cr := csv.NewReader(r)
	cr.Comma = p.comma
	cr.LazyQuotes = p.lazy
	cr.FieldsPerRecord = -1

	labelIdx, textIdx := p.labelIdx, p.textIdx
	if p.header {
		head, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: missing header", contract.ErrSchema, fileID)
		}
		if err != nil {
			return nil, wrapCSV(fileID, err)
		}
		if labelIdx, textIdx, err = p.columns(head); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", contract.ErrSchema, fileID, err)
		}
	}

	var recs []contract.Record
	var idx contract.Index
	for {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSV(fileID, err)
		}
		line, _ := cr.FieldPos(0)
		if labelIdx >= len(row) {
			return nil, fmt.Errorf("%w: %s:%d: label column missing", contract.ErrSchema, fileID, line)
		}
		text := ""
		if textIdx < len(row) {
			text = row[textIdx]
		}
		if !p.latin1 && (!utf8.ValidString(row[labelIdx]) || !utf8.ValidString(text)) {
			return nil, fmt.Errorf("%w: %s:%d: invalid utf-8", contract.ErrEncoding, fileID, line)
		}
		meta := contract.Meta{"line": strconv.Itoa(line)}
		if textIdx >= len(row) {
			meta["missing_text"] = "true"
		}
		recs = append(recs, contract.Record{
			Index:  idx,
			FileID: fileID,
			Label:  contract.Label(strings.ToLower(strings.TrimSpace(row[labelIdx]))),
			Text:   text,
			Meta:   meta,
		})
		idx++
	}
	return recs, nil
}

// columns 在表头中定位标签列与文本列。
func (p *Parser) columns(head []string) (int, int, error) {
	li, ti := -1, -1
	for i, h := range head {
		if i == 0 {
			// UTF-8 BOM；按 latin1 解码时表现为 "ï»¿"
			h = strings.TrimPrefix(strings.TrimPrefix(h, "\ufeff"), "ï»¿")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == p.labelCol && li < 0:
			li = i
		case h == p.textCol && ti < 0:
			ti = i
		}
	}
	if li < 0 {
		return 0, 0, fmt.Errorf("column %q not found in header", p.labelCol)
	}
	if ti < 0 {
		return 0, 0, fmt.Errorf("column %q not found in header", p.textCol)
	}
	return li, ti, nil
}

func wrapCSV(fileID contract.FileID, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %s: %v", contract.ErrSchema, fileID, pe)
	}
	return err
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

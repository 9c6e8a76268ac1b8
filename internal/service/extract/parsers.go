package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/ledongthuc/pdf"
)

var errInvalidUTF8 = errors.New("text file is not valid UTF-8")

// strictTextParser rejects content that is not valid UTF-8.
type strictTextParser struct{}

func (strictTextParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}
	return singleDocument(string(data), opts...), nil
}

// lenientTextParser drops undecodable bytes instead of failing.
type lenientTextParser struct{}

func (lenientTextParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "")
	text = strings.ReplaceAll(text, "\x00", "")
	return singleDocument(text, opts...), nil
}

// pdfParser yields one document per page of plain text.
type pdfParser struct{}

func (pdfParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	common := parser.GetCommonOptions(&parser.Options{}, opts...)

	docs := make([]*schema.Document, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		meta := map[string]any{"page": i}
		for k, v := range common.ExtraMeta {
			meta[k] = v
		}
		docs = append(docs, &schema.Document{ID: fmt.Sprintf("%s#%d", common.URI, i), Content: text, MetaData: meta})
	}
	return docs, nil
}

func singleDocument(text string, opts ...parser.Option) []*schema.Document {
	common := parser.GetCommonOptions(&parser.Options{}, opts...)
	return []*schema.Document{{Content: text, MetaData: common.ExtraMeta}}
}

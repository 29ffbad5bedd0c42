package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed assets/index.html
var indexHTML string

type index struct {
	page []byte
}

func newIndex(nodeHost string) (index, error) {
	tmpl, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return index{}, fmt.Errorf("parsing index template: %w", err)
	}

	var b bytes.Buffer
	if err := tmpl.Execute(&b, struct{ NodeHost string }{nodeHost}); err != nil {
		return index{}, fmt.Errorf("executing index template: %w", err)
	}

	return index{page: b.Bytes()}, nil
}

func (ig index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(ig.page); err != nil {
		return err
	}

	return nil
}

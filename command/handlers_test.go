package command

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-docgen/docgen"
)

type stubConverter struct {
	convert func(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error)
	calls   int
}

func (s *stubConverter) Convert(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error) {
	s.calls++
	if s.convert != nil {
		return s.convert(ctx, req)
	}
	format := docgen.NormalizeFormat(req.Format)
	return docgen.Result{
		Content:     []byte("out:" + req.HTML),
		ContentType: format.ContentType(),
		Filename:    docgen.SanitizeFilename(req.Filename, format),
		Format:      format,
	}, nil
}

func TestGenerateDocument_Validate(t *testing.T) {
	if err := (GenerateDocument{}).Validate(); err == nil {
		t.Fatalf("expected empty html to fail validation")
	}
	if err := (GenerateDocument{Request: docgen.ConversionRequest{HTML: "<p>x</p>", Format: "odt"}}).Validate(); err == nil {
		t.Fatalf("expected unsupported format to fail validation")
	}
	if err := (GenerateDocument{Request: docgen.ConversionRequest{HTML: "<p>x</p>"}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateDocumentHandler_StoresResult(t *testing.T) {
	conv := &stubConverter{}
	handler := NewGenerateDocumentHandler(conv)

	var result docgen.Result
	err := handler.Execute(context.Background(), GenerateDocument{
		Request: docgen.ConversionRequest{HTML: "<p>x</p>", Filename: "memo", Format: docgen.FormatDOCX},
		Result:  &result,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Filename != "memo.docx" || string(result.Content) != "out:<p>x</p>" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGenerateDocumentHandler_RequiresConverter(t *testing.T) {
	handler := NewGenerateDocumentHandler(nil)
	if err := handler.Execute(context.Background(), GenerateDocument{}); err == nil {
		t.Fatalf("expected error without converter")
	}
}

func TestGenerateDocumentHandler_PropagatesError(t *testing.T) {
	want := docgen.NewError(docgen.KindUnavailable, "rendering engine unavailable", nil)
	handler := NewGenerateDocumentHandler(&stubConverter{
		convert: func(context.Context, docgen.ConversionRequest) (docgen.Result, error) {
			return docgen.Result{}, want
		},
	})
	err := handler.Execute(context.Background(), GenerateDocument{Request: docgen.ConversionRequest{HTML: "<p>x</p>"}})
	if !errors.Is(err, want) {
		t.Fatalf("expected converter error, got %v", err)
	}
}

func TestDispatchExecutor(t *testing.T) {
	conv := &stubConverter{}
	sub := dispatcher.SubscribeCommand(NewGenerateDocumentHandler(conv))
	defer sub.Unsubscribe()

	result, err := DispatchExecutor().ExecuteDocument(context.Background(), docgen.ConversionRequest{
		HTML:     "<h1>hi</h1>",
		Filename: "hello",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Filename != "hello.pdf" || conv.calls != 1 {
		t.Fatalf("unexpected result %+v (calls=%d)", result, conv.calls)
	}
}

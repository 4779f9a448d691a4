package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor returns an attribute derived from ctx, if any.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// operationHandler tags each record with the operation id carried by its
// context, then with whatever the extra extractors find. A logger already
// bound to an id through With(OperationID(...)) keeps that id.
type operationHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
	bound      bool
}

func newOperationHandler(next slog.Handler, extractors []ContextExtractor) *operationHandler {
	h := &operationHandler{next: next}
	for _, ex := range extractors {
		if ex != nil {
			h.extractors = append(h.extractors, ex)
		}
	}
	return h
}

func (h *operationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *operationHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, rec)
	}
	if !h.bound {
		if id, ok := OperationIDFromContext(ctx); ok {
			rec.AddAttrs(OperationID(id))
		}
	}
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *operationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	for _, a := range attrs {
		if a.Key == operationIDAttr {
			bound = true
			break
		}
	}
	return &operationHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors, bound: bound}
}

func (h *operationHandler) WithGroup(name string) slog.Handler {
	return &operationHandler{next: h.next.WithGroup(name), extractors: h.extractors, bound: h.bound}
}

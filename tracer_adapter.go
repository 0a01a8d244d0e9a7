package wampc

import (
	"github.com/opentracing/opentracing-go"

	"gitlab.com/silenteer-oss/wampc/session"
	"gitlab.com/silenteer-oss/wampc/tracing"
)

// jaegerTracer adapts package tracing's free functions to
// session.Tracer, so a session can be handed a tracer without the
// session package importing jaeger directly.
type jaegerTracer struct{}

// jaegerSpan wraps the real opentracing.Span so StartRequestSpan can
// recover it from a session.Span parent to build a correct ChildOf
// relationship; session.Span itself only exposes Finish.
type jaegerSpan struct {
	span opentracing.Span
}

func (s *jaegerSpan) Finish() { s.span.Finish() }

func (jaegerTracer) StartSessionSpan(realm string, sessionID uint64) session.Span {
	span := tracing.StartSessionSpan(realm, sessionID)
	if span == nil {
		return nil
	}
	return &jaegerSpan{span: span}
}

func (jaegerTracer) StartRequestSpan(parent session.Span, kind, uri string) session.Span {
	var parentSpan opentracing.Span
	if js, ok := parent.(*jaegerSpan); ok && js != nil {
		parentSpan = js.span
	}
	span := tracing.StartRequestSpan(parentSpan, kind, uri)
	if span == nil {
		return nil
	}
	return &jaegerSpan{span: span}
}

package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/finchley/flowdeck/internal/dedupe"
	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/wire"
)

// Pipeline is the per-frame path: decode, dedupe, dispatch. It is installed
// as the connection manager's frame handler. Every failure is contained
// here; a bad frame is logged and dropped so the connection keeps serving.
type Pipeline struct {
	window     *dedupe.Window
	dispatcher *Dispatcher
	tracer     trace.Tracer
}

// NewPipeline wires the codec, the dedup window and the dispatcher together.
// tracer may be a noop tracer when tracing is disabled.
func NewPipeline(window *dedupe.Window, dispatcher *Dispatcher, tracer trace.Tracer) *Pipeline {
	return &Pipeline{
		window:     window,
		dispatcher: dispatcher,
		tracer:     tracer,
	}
}

// HandleFrame processes one raw frame end to end. It never returns an
// error: decode failures and dispatch failures are log-level diagnostics by
// design, not conditions the connection layer should react to.
func (p *Pipeline) HandleFrame(raw []byte) {
	env, err := wire.Decode(raw)
	if err != nil {
		log.ErrorErr(log.CatWire, "dropping malformed frame", err, "bytes", len(raw))
		return
	}

	if !p.window.ShouldProcess(env) {
		return
	}

	_, span := p.tracer.Start(context.Background(), "event.dispatch",
		trace.WithAttributes(
			attribute.String("event.type", string(env.Type)),
			attribute.String("event.timestamp", env.Timestamp),
		))

	if err := p.dispatcher.Dispatch(env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatDispatch, "dispatch failed, frame dropped", err, "type", env.Type)
	}
	span.End()
}

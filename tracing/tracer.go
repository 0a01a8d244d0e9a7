package tracing

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/spf13/viper"
	jaegermetrics "github.com/uber/jaeger-lib/metrics"

	jaegercfg "github.com/uber/jaeger-client-go/config"
)

const (
	ServiceNameKey       = "SERVICE_NAME"
	JaegerServiceNameEnv = "JAEGER_SERVICE_NAME"
)

func init() {
	// a random fallback so two unconfigured processes on the same host
	// don't report under the same service name.
	viper.SetDefault(ServiceNameKey, fmt.Sprintf("Default_wampc_client_%s", uuid.New().String()))
}

var (
	tracerOnce   sync.Once
	globalTracer opentracing.Tracer
)

// InitTracing eagerly builds the process-wide tracer for serviceName.
// Call it before the first session connects; GetTracer lazily falls
// back to viper's ServiceNameKey default if this was never called.
func InitTracing(serviceName string) {
	globalTracer = bootstrapTracer(serviceName)
}

// bootstrapTracer wires a jaeger tracer from env-sourced config
// (JAEGER_AGENT_HOST, JAEGER_SAMPLER_TYPE, etc. — see
// jaegercfg.FromEnv), using a stdlib-backed Logger adapter and a null
// metrics factory since session-level telemetry already goes through
// the Prometheus-backed MetricsSink. Returns nil on any setup failure
// rather than panicking: a session with no tracer configured is a
// supported, fully functional configuration (spec.md never requires
// tracing).
func bootstrapTracer(serviceName string) opentracing.Tracer {
	os.Setenv(JaegerServiceNameEnv, serviceName)

	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		log.Printf("tracing: invalid jaeger env config, tracing disabled: %v", err)
		return nil
	}

	t, closer, err := cfg.NewTracer(
		jaegercfg.Logger(stdlibJaegerLogger{}),
		jaegercfg.Metrics(jaegermetrics.NullFactory),
	)
	if err != nil {
		log.Printf("tracing: jaeger tracer setup failed, tracing disabled: %v", err)
		return nil
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		closer.Close()
	}()

	return t
}

// GetTracer returns the process-wide tracer, building it from viper's
// ServiceNameKey default on first use if InitTracing was never called.
func GetTracer() opentracing.Tracer {
	if globalTracer == nil {
		tracerOnce.Do(func() {
			globalTracer = bootstrapTracer(viper.GetString(ServiceNameKey))
		})
	}
	return globalTracer
}

// stdlibJaegerLogger satisfies jaeger-client-go's Logger interface
// (Error, Infof) with a plain stdlib *log.Logger; jaeger's debug
// chatter isn't worth routing through the session's structured logur
// logger.
type stdlibJaegerLogger struct{}

func (stdlibJaegerLogger) Error(msg string) {
	log.Println("jaeger:", msg)
}

func (stdlibJaegerLogger) Infof(format string, args ...interface{}) {}

// StartSessionSpan starts the session-lifetime span: begun when WELCOME
// establishes the session, finished on transport disconnect just before
// the session-ended delegate fires (§4.1).
func StartSessionSpan(realm string, sessionID uint64) opentracing.Span {
	t := GetTracer()
	if t == nil {
		return nil
	}
	span := t.StartSpan("wamp.session", ext.SpanKindRPCClient)
	span.SetTag("wamp.realm", realm)
	span.SetTag("wamp.session_id", sessionID)
	return span
}

// StartRequestSpan starts a child span for one outbound CALL or
// PUBLISH, parented to the session span.
func StartRequestSpan(parent opentracing.Span, kind, uri string) opentracing.Span {
	t := GetTracer()
	if t == nil {
		return nil
	}
	opts := []opentracing.StartSpanOption{ext.SpanKindRPCClient}
	if parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	span := t.StartSpan(kind, opts...)
	span.SetTag("wamp.uri", uri)
	return span
}

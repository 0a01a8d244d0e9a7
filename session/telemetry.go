package session

// MetricsSink receives session table-occupancy and message-volume
// events. Implementations wrap a concrete metrics backend (see the
// root package's prometheus-backed Metrics); a nil sink on Config
// disables all telemetry calls.
type MetricsSink interface {
	MessageSent()
	MessageReceived()
	MessageDropped()
	ReportStats(stats Stats)
}

// Span is the subset of opentracing.Span a session needs: every
// concrete opentracing.Span already satisfies this interface
// structurally, so no adapter type is required to use one as a Span.
type Span interface {
	Finish()
}

// Tracer starts the session-lifetime span and per-request child spans.
// A nil Tracer on Config disables tracing entirely.
type Tracer interface {
	StartSessionSpan(realm string, sessionID uint64) Span
	StartRequestSpan(parent Span, kind, uri string) Span
}

func (s *Session) reportStats() {
	if s.cfg.Metrics == nil {
		return
	}
	s.cfg.Metrics.ReportStats(s.Stats())
}

func (s *Session) messageSent() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.MessageSent()
	}
}

func (s *Session) messageReceived() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.MessageReceived()
	}
}

func (s *Session) messageDropped() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.MessageDropped()
	}
}

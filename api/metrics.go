package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "autom8/api"

	generationSpanName    = "briefs.generate"
	generationEventName   = "autom8.briefs.generated"
	generationEventDomain = "autom8.dashboard"
	observabilityEvent    = "observability.event"
)

// generationMetrics records one brief generation request as an otel span and
// a structured log entry carrying the same attributes.
type generationMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	start  time.Time

	briefLength     int
	gatewayDuration time.Duration
	tasksReturned   int
	unassigned      int
	errorStage      string
}

func newGenerationMetrics(ctx context.Context, logger *log.Logger, route string) (*generationMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, generationSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &generationMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
	}, ctx
}

func (m *generationMetrics) SetBriefLength(n int) {
	m.briefLength = n
}

func (m *generationMetrics) ObserveGateway(d time.Duration) {
	if d <= 0 {
		return
	}
	m.gatewayDuration = d
}

func (m *generationMetrics) SetTasksReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.tasksReturned = n
}

func (m *generationMetrics) SetUnassigned(n int) {
	m.unassigned = n
}

func (m *generationMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and emits the observability event.
func (m *generationMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Int("autom8.briefs.brief_length", m.briefLength),
		attribute.Int("autom8.briefs.tasks_returned", m.tasksReturned),
		attribute.Int("autom8.briefs.unassigned", m.unassigned),
		attribute.Float64("autom8.briefs.total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.gatewayDuration > 0 {
		attrs = append(attrs, attribute.Float64("autom8.briefs.gateway_ms", durationToMillis(m.gatewayDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("autom8.briefs.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	sevText, sevNumber := severityForStatus(status, err)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", generationEventName),
		attribute.String("event.domain", generationEventDomain),
		attribute.String("severity_text", sevText),
		attribute.Int("severity_number", sevNumber),
	}, attrs...)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
		if sevText == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      generationEventName,
		"event.domain":    generationEventDomain,
		"severity_text":   sevText,
		"severity_number": sevNumber,
		"attributes":      attributesToFields(attrs),
	}
	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch sevText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	case err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func attributesToFields(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

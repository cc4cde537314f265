package steer

import (
	"errors"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/progress"
	"github.com/viant/steer/service/bridge"
	bmemory "github.com/viant/steer/service/bridge/memory"
	"github.com/viant/steer/service/dao"
	"github.com/viant/steer/service/engine"
	"github.com/viant/steer/service/event"
	"github.com/viant/steer/service/messaging"
	"github.com/viant/steer/service/store"
	smemory "github.com/viant/steer/service/store/memory"
	"github.com/viant/steer/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var errEngineNotConfigured = errors.New("steer: no planner configured - submit tasks to your own workflow engine")

// Option customises the Service façade.
type Option func(s *Service)

// WithConfig sets the serialisable configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithStore sets the review state store.
func WithStore(svc store.Service) Option {
	return func(s *Service) { s.store = svc }
}

// WithStoreOptions forwards options to the default in-memory store.
func WithStoreOptions(options ...smemory.Option) Option {
	return func(s *Service) { s.storeOptions = append(s.storeOptions, options...) }
}

// WithBridge sets the workflow signal bridge.
func WithBridge(svc bridge.Service) Option {
	return func(s *Service) { s.bridge = svc }
}

// WithBridgeOptions forwards options to the default in-process bridge.
func WithBridgeOptions(options ...bmemory.Option) Option {
	return func(s *Service) { s.bridgeOptions = append(s.bridgeOptions, options...) }
}

// WithPlanner enables the in-process engine with the supplied planner.
func WithPlanner(planner engine.Planner) Option {
	return func(s *Service) { s.planner = planner }
}

// WithExecutor sets the post-approval executor used by the in-process
// engine.
func WithExecutor(executor engine.Executor) Option {
	return func(s *Service) { s.executor = executor }
}

// WithEngineOptions forwards additional options to the in-process engine.
func WithEngineOptions(options ...engine.Option) Option {
	return func(s *Service) { s.engineOptions = append(s.engineOptions, options...) }
}

// WithRecordDAO sets the review record persistence backend (e.g. the
// afs-backed one from service/dao/review/fs).
func WithRecordDAO(records dao.Service[string, review.Record]) Option {
	return func(s *Service) { s.recordDAO = records }
}

// WithTaskDAO sets the task persistence backend.
func WithTaskDAO(tasks dao.Service[string, engine.Task]) Option {
	return func(s *Service) { s.taskDAO = tasks }
}

// WithQueueVendor selects the messaging backend for the event hub.
func WithQueueVendor(vendor messaging.Vendor) Option {
	return func(s *Service) { s.queueVendor = vendor }
}

// WithEventService sets the event hub.
func WithEventService(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithProgress attaches a progress tracker.
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) { s.progress = tracker }
}

// WithArchiveOnCompletion retires review records when the owning task
// reaches a terminal state.
func WithArchiveOnCompletion(archive bool) Option {
	return func(s *Service) { s.archiveOnDone = archive }
}

// WithTracing configures OpenTelemetry tracing for the service.  If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path.  The function is safe to call multiple
// times - the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter (OTLP, Jaeger, Zipkin, …).
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}

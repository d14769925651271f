package carealloc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the Service
type Option func(s *Service)

// WithConfig sets the configuration, DefaultConfig is used otherwise
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the structured logger shared by every component
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStores sets the persistence backend, bypassing store.vendor
func WithStores(stores *dao.Set) Option {
	return func(s *Service) {
		s.stores = stores
	}
}

// WithFileSystem sets the afs service used by fs stores and fs event queues
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithEventService sets the event service, bypassing the events section
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithRegistry sets the prometheus registry for allocator metrics, a fresh
// registry is created otherwise.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans go to stdout. The first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracing = &tracing.Config{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OutputFile:     outputFile,
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter such as OTLP or an in-memory test exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracingErr = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}

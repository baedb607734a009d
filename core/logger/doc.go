// Package logger provides structured logging utilities built on Go's standard slog package.
// It offers environment-specific configurations, context-aware attribute
// extraction, and a set of pre-built attributes for the streaming domain.
//
// # Features
//
//   - Built on Go's standard slog for compatibility and performance
//   - Environment-specific configurations (development, staging, production)
//   - Context-aware attribute extraction for request-scoped data
//   - Support for both JSON and text output formats
//   - Type-safe attribute creation with nil safety
//
// # Basic Usage
//
// Create loggers using the factory function with various configuration options:
//
//	import "github.com/dmitrymomot/chainstream/core/logger"
//
//	// Create a development logger
//	log := logger.New(
//		logger.WithDevelopment("chainstream"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	// Create a production logger
//	log := logger.New(
//		logger.WithProduction("chainstream"),
//	)
//
//	// Use the logger
//	log.Info("broadcaster started",
//		logger.Component("broadcast"),
//		logger.Event("startup"),
//	)
//
// # Environment Configurations
//
//	// Development: text format, debug level, stdout
//	devLogger := logger.New(logger.WithDevelopment("chainstream"))
//
//	// Production: JSON format, info level, stdout
//	prodLogger := logger.New(logger.WithProduction("chainstream"))
//
//	// Custom configuration
//	customLogger := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("service", "chainstream")),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Context-Aware Logging
//
// Extract and inject attributes automatically from context values:
//
//	log := logger.New(
//		logger.WithProduction("chainstream"),
//		logger.WithContextValue("request_id", "request_id"),
//	)
//
//	ctx := context.WithValue(context.Background(), "request_id", "req-12345")
//	log.InfoContext(ctx, "subscription accepted")
//	// Output: {"level":"INFO","msg":"subscription accepted","request_id":"req-12345"}
//
// Custom extraction logic goes through WithContextExtractors:
//
//	log := logger.New(
//		logger.WithProduction("chainstream"),
//		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//			if id, ok := ctx.Value(subscriberKey).(uint64); ok {
//				return logger.SubscriberID(id), true
//			}
//			return slog.Attr{}, false
//		}),
//	)
//
// # Attribute Helpers
//
// The helpers keep attribute keys consistent across the codebase:
//
//	log.Error("subscriber evicted",
//		logger.Error(err),
//		logger.SubscriberID(id),
//		logger.Component("broadcast"),
//	)
//
//	log.Info("request processed",
//		logger.Method("POST"),
//		logger.Path("/v1/ingest"),
//		logger.StatusCode(202),
//		logger.Latency(time.Since(start)),
//	)
//
//	log.Debug("update dispatched",
//		logger.UpdateKind("slot"),
//		logger.Slot(slot),
//		logger.FilterGroups(names),
//	)
//
// # Global Logger Setup
//
//	log := logger.New(logger.WithProduction("chainstream"))
//	logger.SetAsDefault(log)
//
//	// Use anywhere in the application
//	slog.Info("using global logger", logger.Component("global"))
//
// # Testing with Custom Output
//
// Capture logs during testing:
//
//	var buf bytes.Buffer
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithOutput(&buf),
//	)
//
//	log.Info("test message", logger.Component("test"))
//	assert.Contains(t, buf.String(), `"component":"test"`)
package logger

// Package observability provides OpenTelemetry tracing and metrics for
// command runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("melos"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPackage)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("melos"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("melos"))
//	metrics.RecordPackageEnd(ctx, "flutter test", "succeeded", duration)
//
// Both at once, driven by configuration:
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, "melos", cfg.Environment)
//	defer shutdown(ctx)
package observability

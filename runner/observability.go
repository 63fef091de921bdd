package runner

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/observability"
	"github.com/kbukum/melos/task"
)

// WithTracing wraps an Executor with a span per package.
func WithTracing(exec Executor) Executor {
	return ExecutorFunc(func(ctx context.Context, t task.Task, out OutputFunc) task.Result {
		ctx, span := observability.StartSpan(ctx, observability.SpanPackage)
		defer span.End()

		span.SetAttributes(
			attribute.String(observability.AttrPackage, t.Package),
			attribute.String(observability.AttrCommand, t.Command),
		)
		if rc := observability.RunContextFromContext(ctx); rc != nil {
			span.SetAttributes(attribute.String(observability.AttrRunID, rc.RunID))
		}

		r := exec.Execute(ctx, t, out)

		span.SetAttributes(
			attribute.String(observability.AttrOutcome, r.Outcome.Status.String()),
			attribute.Int(observability.AttrExitCode, r.Outcome.ExitCode),
			attribute.Int64(observability.AttrDurationMs, r.Duration.Milliseconds()),
		)
		if r.Outcome.IsFailure() {
			span.SetAttributes(attribute.String(observability.AttrErrorMessage, r.Outcome.String()))
		}
		return r
	})
}

// WithMetrics wraps an Executor with package metric recording.
func WithMetrics(exec Executor, metrics *observability.Metrics) Executor {
	return ExecutorFunc(func(ctx context.Context, t task.Task, out OutputFunc) task.Result {
		metrics.RecordPackageStart(ctx)
		r := exec.Execute(ctx, t, out)
		metrics.RecordPackageEnd(ctx, t.Command, r.Outcome.Status.String(), r.Duration)
		if r.Outcome.IsFailure() {
			metrics.RecordError(ctx, r.Outcome.Status.String(), t.Package)
		}
		return r
	})
}

// WithLogging wraps an Executor with per-package debug logging.
func WithLogging(exec Executor, log *logger.Logger) Executor {
	return ExecutorFunc(func(ctx context.Context, t task.Task, out OutputFunc) task.Result {
		l := log.WithContext(ctx).WithPackage(t.Package)
		l.Debug("package started", logger.Fields(logger.FieldCommand, t.Command))

		r := exec.Execute(ctx, t, out)

		fields := logger.MergeWithDuration(logger.Fields(logger.FieldOutcome, r.Outcome.String()), r.Duration)
		switch {
		case r.Outcome.Status == task.StatusTimedOut:
			l.WithError(errors.Timeout(t.Package)).Warn("package timed out", fields)
		case r.Outcome.IsFailure():
			fields[logger.FieldExitCode] = r.Outcome.ExitCode
			l.Warn("package failed", fields)
		default:
			l.Debug("package finished", fields)
		}
		return r
	})
}

// Package errors provides the structured error type shared by the graph,
// filter, scheduler and runner packages. Every error carries a
// machine-readable code so callers can tell plan-time failures (dangling
// dependency, cycle, bad filter pattern) apart from runtime ones.
package errors

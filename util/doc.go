// Package util provides small generic helpers for name sets and optional
// values.
package util

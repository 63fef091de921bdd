// Package logger provides structured logging using zerolog.
//
// Logs go to stderr by default so that package output streamed by the runner
// keeps stdout to itself.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get(logger.ComponentRunner)
//	log.Info("package finished", logger.Fields("package", "core", "exit_code", 0))
package logger

// Package validation validates configuration and run requests.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both return a
// VALIDATION_ERROR AppError carrying per-field details.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    Concurrency int `yaml:"concurrency" validate:"gte=0"`
//	}
//	err := validation.Struct(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("command", req.Command)
//	err := v.Error()
package validation

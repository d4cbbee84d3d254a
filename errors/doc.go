// Package errors provides structured error types for the BSON codec and the
// configuration-access layer built on it.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: element path, got/want type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBuild, errors.KindRange).
//		Path("counters", "total").
//		Want("int64").
//		Detail("value 18446744073709551615 does not fit int64").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidUTF8(errors.PhaseBuild, path, data)
//	err := errors.NotFound(errors.PhaseConfig, "config", "USERVER_RPS_LIMIT")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so sentinel comparisons work without sharing
// error instances across packages.
package errors

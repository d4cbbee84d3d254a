// Package userver is the root of a Go implementation of the userver
// framework's BSON serialization engine and the configuration-access layer
// built on top of it.
//
// The module is organized into packages with distinct responsibilities:
//
//	userver/
//	├── bson/       value trees, the recursive BSON encoder, raw reader
//	├── config/     DocsMap named lookup and Dict default-key fallback
//	└── errors/     structured error types (phase, kind, path)
//
// Most users start with the bson package:
//
//	b := bson.NewBuilder()
//	b.Append("name", "alpha")
//	doc, err := b.Extract()
package userver

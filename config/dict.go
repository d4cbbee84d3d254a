package config

import (
	"fmt"

	"github.com/trenin17/userver/bson"
	"github.com/trenin17/userver/errors"
)

// DefaultKey is the dictionary entry used when a requested key is absent.
const DefaultKey = "__default__"

// Dict is a string-keyed configuration dictionary with default-key fallback:
// looking up an absent key returns the DefaultKey entry when one exists.
type Dict[T any] struct {
	name  string
	items map[string]T
}

// NewDict creates a dictionary. The name is used in error messages only.
func NewDict[T any](name string, items map[string]T) Dict[T] {
	return Dict[T]{name: name, items: items}
}

// DictFromValue builds a Dict of raw values from a document node, one entry
// per field.
func DictFromValue(name string, v bson.Value) (Dict[bson.Value], error) {
	fields, err := v.AsDocument()
	if err != nil {
		return Dict[bson.Value]{}, err
	}
	items := make(map[string]bson.Value, len(fields))
	for _, f := range fields {
		items[f.Key] = f.Value
	}
	return NewDict(name, items), nil
}

// Name returns the dictionary's name.
func (d Dict[T]) Name() string { return d.name }

// Size returns the number of entries, the default included.
func (d Dict[T]) Size() int { return len(d.items) }

// HasValue reports whether key is present, without default fallback.
func (d Dict[T]) HasValue(key string) bool {
	_, ok := d.items[key]
	return ok
}

// HasDefault reports whether a DefaultKey entry is present.
func (d Dict[T]) HasDefault() bool {
	return d.HasValue(DefaultKey)
}

// GetDefault returns the DefaultKey entry.
func (d Dict[T]) GetDefault() (T, error) {
	return d.get(DefaultKey)
}

// Get returns the entry for key, falling back to the DefaultKey entry.
func (d Dict[T]) Get(key string) (T, error) {
	if v, ok := d.items[key]; ok {
		return v, nil
	}
	return d.get(key)
}

// GetOptional returns the entry for key or the default, reporting presence
// instead of failing.
func (d Dict[T]) GetOptional(key string) (T, bool) {
	if v, ok := d.items[key]; ok {
		return v, true
	}
	v, ok := d.items[DefaultKey]
	return v, ok
}

func (d Dict[T]) get(key string) (T, error) {
	if v, ok := d.items[DefaultKey]; ok {
		return v, nil
	}
	var zero T
	what := "dict entry"
	if d.name != "" {
		what = fmt.Sprintf("entry of dict %q", d.name)
	}
	return zero, errors.NotFound(errors.PhaseConfig, what, key)
}

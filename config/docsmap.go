package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trenin17/userver/bson"
	"github.com/trenin17/userver/errors"
)

// DocsMap holds named configuration entries as BSON value trees. Get records
// which names were requested so callers can report the set of configuration
// items a service actually consumed. Safe for concurrent reads.
type DocsMap struct {
	mu        sync.Mutex
	docs      map[string]bson.Value
	requested map[string]struct{}
}

// NewDocsMap creates an empty DocsMap.
func NewDocsMap() *DocsMap {
	return &DocsMap{
		docs:      make(map[string]bson.Value),
		requested: make(map[string]struct{}),
	}
}

// Get returns the entry for name or a not-found error if it is absent.
// The name is recorded as requested either way.
func (m *DocsMap) Get(name string) (bson.Value, error) {
	m.mu.Lock()
	m.requested[name] = struct{}{}
	v, ok := m.docs[name]
	m.mu.Unlock()

	if !ok {
		Logger().Debug("config entry not found", zap.String("name", name))
		return bson.Value{}, errors.NotFound(errors.PhaseConfig, "config", name)
	}
	Logger().Debug("config entry requested", zap.String("name", name))
	return v, nil
}

// Set stores or replaces the entry for name.
func (m *DocsMap) Set(name string, v bson.Value) {
	m.mu.Lock()
	m.docs[name] = v
	m.mu.Unlock()
}

// Size returns the number of stored entries.
func (m *DocsMap) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// MergeFrom copies the other map's entries into this one; entries present in
// both take the other map's value.
func (m *DocsMap) MergeFrom(other *DocsMap) {
	other.mu.Lock()
	entries := make(map[string]bson.Value, len(other.docs))
	for k, v := range other.docs {
		entries[k] = v
	}
	other.mu.Unlock()

	m.mu.Lock()
	for k, v := range entries {
		m.docs[k] = v
	}
	m.mu.Unlock()
}

// RequestedNames returns every name passed to Get so far, sorted.
func (m *DocsMap) RequestedNames() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.requested))
	for name := range m.requested {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)
	return names
}

// GetAs fetches the entry for name and converts it to T via the value's typed
// accessors. Supported: bool, int32, int64, uint64, float64, string,
// time.Time, and bson.Value itself.
func GetAs[T any](m *DocsMap, name string) (T, error) {
	var out T
	v, err := m.Get(name)
	if err != nil {
		return out, err
	}
	switch p := any(&out).(type) {
	case *bool:
		*p, err = v.AsBool()
	case *int32:
		*p, err = v.AsInt32()
	case *int64:
		*p, err = v.AsInt64()
	case *uint64:
		*p, err = v.AsUint64()
	case *float64:
		*p, err = v.AsDouble()
	case *string:
		*p, err = v.AsString()
	case *time.Time:
		*p, err = v.AsTime()
	case *bson.Value:
		*p = v
	default:
		err = errors.TypeMismatch(errors.PhaseConfig, []string{name},
			v.Kind().String(), fmt.Sprintf("%T", out))
	}
	return out, err
}

// Package registry tracks the embedded database connections a process
// has opened, so shutdown can find every handle that needs to be driven
// down safely.
//
// Registration is always explicit. There is no ambient default registry
// and no scanning of process state: a connection participates in
// lifecycle management exactly when a caller registers it.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"database/sql"
)

var (
	// ErrAlreadyRegistered is returned when registering a name twice.
	ErrAlreadyRegistered = errors.New("registry: connection name already registered")

	// ErrNotRegistered is returned when unregistering an unknown name.
	ErrNotRegistered = errors.New("registry: connection name not registered")

	// ErrInvalidRecord is returned when a record is missing required
	// fields.
	ErrInvalidRecord = errors.New("registry: invalid record")
)

// Record is one registered embedded-database connection.
type Record struct {
	// Name identifies the record within its registry.
	Name string

	// DB is the live database handle.
	DB *sql.DB

	// Path is the database file backing the connection. Empty for
	// in-memory databases, which shutdown disconnects but never
	// replaces.
	Path string

	// ReadOnly marks connections whose files must never be rewritten.
	ReadOnly bool

	// Caps records what the engine behind this connection supports.
	Caps Capabilities

	// State is the last lifecycle state written by the shutdown
	// manager. Empty until a shutdown run touches the record.
	State string
}

// Registry is a concurrency-safe, explicitly populated set of records.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Register adds a record. The record's name must be unique and its
// handle non-nil.
func (r *Registry) Register(rec *Record) error {
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRecord)
	}
	if rec.DB == nil {
		return fmt.Errorf("%w: %s has no database handle", ErrInvalidRecord, rec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, rec.Name)
	}
	r.records[rec.Name] = rec
	return nil
}

// Unregister removes a record by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	delete(r.records, name)
	return nil
}

// Get returns the record registered under name.
func (r *Registry) Get(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return rec, ok
}

// All returns every record sorted by name. The slice is a copy; the
// records are shared.
func (r *Registry) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

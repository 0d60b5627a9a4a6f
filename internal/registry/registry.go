package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/typedrpc/internal/bind"
	"github.com/vk/typedrpc/internal/call"
)

// ErrNotFound is returned by Dispatch when no procedure is registered
// under the requested name.
var ErrNotFound = errors.New("procedure not found")

// Module is the interface that procedure bundles implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps procedure names to their compiled binders. Entries are
// immutable once stored; the map itself is guarded so dispatches may run
// concurrently with registrations and never observe a partially built
// entry.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]*bind.Binder
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		procs: make(map[string]*bind.Binder),
	}
}

// Register compiles the procedure's signature once and stores it under
// name. Re-registering an existing name atomically replaces its entry: the
// new signature takes effect only for calls that look the name up after
// the swap.
func (r *Registry) Register(name string, proc bind.Procedure) error {
	if name == "" {
		return &bind.SignatureError{Err: errors.New("procedure name cannot be empty")}
	}
	binder, err := bind.NewBinder(proc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	_, replaced := r.procs[name]
	r.procs[name] = binder
	r.mu.Unlock()

	slog.Debug("Registered procedure.", "name", name, "params", len(binder.Signature().Params), "replaced", replaced)
	return nil
}

// Dispatch looks up the procedure by name and runs its binder against the
// live call context. Every binding or handler failure is returned to the
// caller as an error for that one call; none corrupts the registry or the
// dispatching worker.
func (r *Registry) Dispatch(ctx context.Context, name string, c call.Context) error {
	r.mu.RLock()
	binder, ok := r.procs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return binder.Invoke(ctx, c)
}

// Count reports the number of currently registered procedures.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procs)
}

// Names lists the registered procedure names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

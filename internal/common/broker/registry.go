package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Role names a logical connection. Ingress is the shared broker the HTTP
// layer writes to; Local is the node-local broker between worker loops.
type Role string

const (
	RoleIngress Role = "ingress"
	RoleLocal   Role = "local"
)

// Registry holds one Broker per role. Built once at startup and shared.
type Registry struct {
	mu      sync.RWMutex
	brokers map[Role]Broker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{brokers: make(map[Role]Broker)}
}

// Register binds b to role, replacing any previous binding.
func (r *Registry) Register(role Role, b Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[role] = b
}

// Connect dials one Redis broker per config entry and registers it.
// Roles pointing at the same address still get separate pools.
func (r *Registry) Connect(configs map[Role]*RedisConfig) error {
	for role, cfg := range configs {
		b, err := NewRedisBroker(cfg)
		if err != nil {
			return fmt.Errorf("connect %s broker: %w", role, err)
		}
		r.Register(role, b)
	}
	return nil
}

// Get returns the broker bound to role.
func (r *Registry) Get(role Role) (Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.brokers[role]
	if !ok {
		return nil, fmt.Errorf("broker %q is not registered", role)
	}
	return b, nil
}

// MustGet is Get for wiring code that already validated the registry.
func (r *Registry) MustGet(role Role) Broker {
	b, err := r.Get(role)
	if err != nil {
		panic(err)
	}
	return b
}

// Ping checks every registered broker.
func (r *Registry) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, role := range r.rolesLocked() {
		if err := r.brokers[role].Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every registered broker.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, role := range r.rolesLocked() {
		if err := r.brokers[role].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) rolesLocked() []Role {
	roles := make([]Role, 0, len(r.brokers))
	for role := range r.brokers {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

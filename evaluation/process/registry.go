//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package process

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Registry errors.
var (
	// ErrProcessNotFound is returned when a process id has no registry entry.
	ErrProcessNotFound = errors.New("process not found")
	// ErrProcessExists is returned when registering a process id twice.
	ErrProcessExists = errors.New("process already registered")
	// ErrProcessNotRunning is returned when cancelling a process that is not in progress.
	ErrProcessNotRunning = errors.New("process is not in progress")
)

// defaultEvictTTL is how long terminal entries stay readable before eviction.
const defaultEvictTTL = 30 * time.Minute

// entry is one tracked background orchestration task.
type entry struct {
	record     *StatusRecord
	cancel     context.CancelFunc
	done       chan struct{}
	terminalAt time.Time
}

// Registry tracks running orchestration tasks and caches their status records.
// It is the fast read path for status polling; the durable store stays authoritative
// across restarts. Terminal entries are evicted after a TTL.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration

	stopEvict chan struct{}
	evictOnce sync.Once
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEvictTTL overrides how long terminal entries are retained.
func WithEvictTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRegistry creates a process registry and starts its eviction loop.
func NewRegistry(opt ...RegistryOption) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		ttl:       defaultEvictTTL,
		stopEvict: make(chan struct{}),
	}
	for _, o := range opt {
		o(r)
	}
	go r.evictLoop()
	return r
}

// Register tracks a new process. The cancel func cancels the background task.
func (r *Registry) Register(record *StatusRecord, cancel context.CancelFunc) error {
	if record == nil {
		return errors.New("status record is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[record.ProcessID]; ok {
		return ErrProcessExists
	}
	r.entries[record.ProcessID] = &entry{
		record: record.Clone(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	return nil
}

// Get returns a copy of the cached status record for a process.
func (r *Registry) Get(processID string) (*StatusRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[processID]
	if !ok {
		return nil, false
	}
	return e.record.Clone(), true
}

// SetStatus replaces the cached status record. The caller must have already
// confirmed the durable write; the cache is only ever updated from durable state.
func (r *Registry) SetStatus(record *StatusRecord) {
	if record == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[record.ProcessID]
	if !ok {
		return
	}
	e.record = record.Clone()
	if record.OverallStatus.Terminal() && e.terminalAt.IsZero() {
		e.terminalAt = time.Now()
		close(e.done)
	}
}

// Cancel requests cooperative cancellation of a running process. The lock is
// held across the terminal check: SetStatus swaps the entry's record under the
// write lock, so the check must not outlive the read lock.
func (r *Registry) Cancel(processID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[processID]
	if !ok {
		return ErrProcessNotFound
	}
	if e.record.OverallStatus.Terminal() {
		return ErrProcessNotRunning
	}
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

// CancelAll requests cancellation of every non-terminal process. Used during
// graceful shutdown.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if !e.record.OverallStatus.Terminal() && e.cancel != nil {
			e.cancel()
		}
	}
}

// Done returns a channel closed when the process reaches a terminal status.
func (r *Registry) Done(processID string) (<-chan struct{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[processID]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// HasOngoing reports whether the user already has a non-terminal process.
func (r *Registry) HasOngoing(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.record.UserID == userID && !e.record.OverallStatus.Terminal() {
			return true
		}
	}
	return false
}

// Close stops the eviction loop.
func (r *Registry) Close() {
	r.evictOnce.Do(func() { close(r.stopEvict) })
}

func (r *Registry) evictLoop() {
	interval := r.ttl / 10
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopEvict:
			return
		case now := <-ticker.C:
			r.evict(now)
		}
	}
}

func (r *Registry) evict(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if !e.terminalAt.IsZero() && now.Sub(e.terminalAt) >= r.ttl {
			delete(r.entries, id)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"math"
	"sync"
)

// ProgressReceiver publishes indexing progress. Any number of readers may
// poll Value or wait on Changed.
type ProgressReceiver struct {
	mu      sync.Mutex
	value   float32
	err     error
	changed chan struct{}
}

func newProgress(v float32) *ProgressReceiver {
	return &ProgressReceiver{value: clamp(v), changed: make(chan struct{})}
}

// Value returns the current progress in [0,1]. 1 means the index is
// complete and no rebuild is running.
func (p *ProgressReceiver) Value() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Err returns the error of the last failed rebuild, if any.
func (p *ProgressReceiver) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Changed returns a channel that is closed at the next update.
func (p *ProgressReceiver) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// Wait blocks until the next update and returns the new value.
func (p *ProgressReceiver) Wait(ctx context.Context) (float32, error) {
	select {
	case <-p.Changed():
		return p.Value(), nil
	case <-ctx.Done():
		return p.Value(), ctx.Err()
	}
}

// set stores v and wakes waiters. It has the index.ProgressSink signature.
func (p *ProgressReceiver) set(v float32) {
	v = clamp(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if v == p.value && p.err == nil {
		return
	}
	p.value = v
	p.err = nil
	p.notify()
}

// fail records a failed rebuild and wakes waiters.
func (p *ProgressReceiver) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	p.notify()
}

// notify must be called with mu held.
func (p *ProgressReceiver) notify() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func clamp(v float32) float32 {
	switch {
	case v < 0 || math.IsNaN(float64(v)):
		return 0
	case v > 1:
		return 1
	}
	return v
}

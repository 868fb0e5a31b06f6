// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of the turn in flight. The turn
// goroutine and the Update loop both touch it, so it is kept behind a
// pointer to avoid copying the mutex with the model.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// begin derives a cancellable context for a new turn.
func (cm *cancelManager) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = cancel
	return ctx
}

// cancel cancels the turn in flight and reports whether there was one.
// Safe to call multiple times.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	return true
}

// =============================================================================
// MODEL METHODS (CONVENIENCE WRAPPERS)
// =============================================================================

func (m *Model) beginTurnContext() context.Context {
	return m.cancelMgr.begin(m.ctx)
}

func (m *Model) cancelTurn() bool {
	return m.cancelMgr.cancel()
}

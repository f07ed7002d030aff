package gateway

import (
	"context"
	"sync"

	"modelchat/internal/domain"
)

// Availability is a single-resolution cell holding the gateway capability.
// It starts pending and settles to ready or failed exactly once.
type Availability struct {
	mu     sync.RWMutex
	done   chan struct{}
	status domain.GatewayStatus
	handle *Handle
}

func NewAvailability() *Availability {
	return &Availability{
		done:   make(chan struct{}),
		status: domain.GatewayStatus{State: domain.GatewayPending},
	}
}

// Resolve settles the cell as ready. It reports false if it was already settled.
func (a *Availability) Resolve(h *Handle) bool {
	if h == nil {
		return a.Fail("gateway loader returned no capability")
	}
	return a.settle(domain.GatewayStatus{State: domain.GatewayReady}, h)
}

// Fail settles the cell as failed. It reports false if it was already settled.
func (a *Availability) Fail(reason string) bool {
	return a.settle(domain.GatewayStatus{State: domain.GatewayFailed, Reason: reason}, nil)
}

func (a *Availability) settle(status domain.GatewayStatus, h *Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status.State != domain.GatewayPending {
		return false
	}
	a.status = status
	a.handle = h
	close(a.done)
	return true
}

func (a *Availability) Status() domain.GatewayStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Availability) Handle() (*Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handle, a.handle != nil
}

func (a *Availability) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the cell settles or ctx ends.
func (a *Availability) Wait(ctx context.Context) (domain.GatewayStatus, error) {
	select {
	case <-a.done:
		return a.Status(), nil
	case <-ctx.Done():
		return a.Status(), ctx.Err()
	}
}

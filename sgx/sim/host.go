package sim

import "sync"

// Host is a convenience registry of "which simulated enclave is the
// active execution context", mirroring the enter/exit sequencing a real
// enclave host performs. It is strictly a test-harness aid: protocol
// components receive their sgx.Platform explicitly and never consult a
// Host.
type Host struct {
	mu    sync.Mutex
	stack []*Enclave
}

// Enter pushes e as the active enclave context.
func (h *Host) Enter(e *Enclave) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, e)
}

// Exit pops the active enclave context. Exiting with no active context
// is a no-op.
func (h *Host) Exit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) > 0 {
		h.stack = h.stack[:len(h.stack)-1]
	}
}

// Active returns the active enclave context, or nil if execution is
// outside any enclave.
func (h *Host) Active() *Enclave {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		return nil
	}
	return h.stack[len(h.stack)-1]
}

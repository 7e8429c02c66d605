package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupted is the exit status after SIGINT or SIGTERM.
const ExitInterrupted = 130

// Handler runs registered cleanup and exits when the process is interrupted.
type Handler struct {
	cleanupFns []func()
	mu         sync.Mutex
	once       sync.Once
	sigChan    chan os.Signal
	exit       func(code int)
}

// New creates a new shutdown handler
func New() *Handler {
	return &Handler{
		sigChan: make(chan os.Signal, 1),
		exit:    os.Exit,
	}
}

// AddCleanup registers a cleanup function to be called on shutdown
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Listen starts listening for shutdown signals
func (h *Handler) Listen() {
	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if _, ok := <-h.sigChan; ok {
			h.interrupt()
		}
	}()
}

// Stop stops signal delivery after a normal run.
func (h *Handler) Stop() {
	signal.Stop(h.sigChan)
	h.once.Do(func() { close(h.sigChan) })
}

func (h *Handler) interrupt() {
	h.Shutdown()
	h.exit(ExitInterrupted)
}

// Shutdown runs the cleanup functions in registration order. Only the first
// call does anything.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	fns := h.cleanupFns
	h.cleanupFns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

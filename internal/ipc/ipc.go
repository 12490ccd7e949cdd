// Package ipc models the upstream scheduler exchange that the original
// daemon implemented as a shared-memory region split into a command
// half and a status half, each guarded by a request/response flag. A
// Go process has no separate address space to share with its
// scheduler, so this is reimplemented as a pair of interfaces guarded
// internally by a mutex, grounded on rtksvr.go's svr.Lock pattern
// (RtkSvrLock/RtkSvrUnlock around shared server state).
package ipc

import (
	"sync"

	"github.com/nicolas-erasmus/rotse/internal/engine"
)

// MemChannel is an in-memory engine.CommandSource+engine.StatusSink
// pair, modeling the original's shared-memory command/status halves
// with a mutex instead of a semaphore.
type MemChannel struct {
	mu sync.Mutex

	hasCmd bool
	cmd    engine.CommandParam

	hasStatus  bool
	status     engine.MountStatus
	statusRead bool

	ignoredPublishes int
}

var (
	_ engine.CommandSource = (*MemChannel)(nil)
	_ engine.StatusSink    = (*MemChannel)(nil)
	_ engine.CommandSource = NoCommandSource{}
	_ engine.StatusSink    = DiscardSink{}
)

// NewMemChannel returns an empty command/status channel.
func NewMemChannel() *MemChannel {
	return &MemChannel{statusRead: true}
}

// Submit enqueues a command from the upstream scheduler's side.
func (c *MemChannel) Submit(cmd engine.CommandParam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmd = cmd
	c.hasCmd = true
}

// Pending reports whether a command is waiting to be taken.
func (c *MemChannel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasCmd
}

// Take consumes the pending command.
func (c *MemChannel) Take() engine.CommandParam {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasCmd = false
	return c.cmd
}

// Publish stores the latest status if the previous one has been
// observed; otherwise it returns false, mirroring the original's
// oreq-still-high ignore case.
func (c *MemChannel) Publish(s engine.MountStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasStatus && !c.statusRead {
		c.ignoredPublishes++
		return false
	}
	c.status = s
	c.hasStatus = true
	c.statusRead = false
	c.ignoredPublishes = 0
	return true
}

// ReadStatus is the scheduler-side observation of the most recent
// status, marking it read so the next Publish can proceed.
func (c *MemChannel) ReadStatus() (engine.MountStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasStatus {
		return engine.MountStatus{}, false
	}
	c.statusRead = true
	return c.status, true
}

// ConsumerAbsent reports whether the consumer has failed to observe
// published status for at least tout consecutive publish attempts, the
// NROTSE_TOUT shutdown condition.
func (c *MemChannel) ConsumerAbsent(tout int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ignoredPublishes >= tout
}

// NoCommandSource never has a pending command; useful for standalone
// testing or a degraded mode with no scheduler attached.
type NoCommandSource struct{}

func (NoCommandSource) Pending() bool             { return false }
func (NoCommandSource) Take() engine.CommandParam { return engine.CommandParam{} }

// DiscardSink accepts every publish, useful in tests.
type DiscardSink struct{}

func (DiscardSink) Publish(engine.MountStatus) bool { return true }

package bot

import (
	"sync"

	"github.com/arifmahmud/uptimebot/internal/domain"
)

// State is where a user stands in the add-monitor dialogue.
type State int

const (
	StateIdle State = iota
	StateAwaitingURL
	StateAwaitingInterval
)

// Conversations tracks the per-user dialogue state machine:
// Idle -> AwaitingURL -> AwaitingInterval -> Idle.
type Conversations struct {
	mu sync.Mutex
	m  map[int64]*conversation
}

type conversation struct {
	state State
	draft domain.TargetID // target being configured while awaiting its interval
}

func NewConversations() *Conversations {
	return &Conversations{m: make(map[int64]*conversation)}
}

func (c *Conversations) State(userID int64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.m[userID]; ok {
		return conv.state
	}
	return StateIdle
}

// Draft returns the target id awaiting an interval, if any.
func (c *Conversations) Draft(userID int64) (domain.TargetID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.m[userID]
	if !ok || conv.state != StateAwaitingInterval {
		return "", false
	}
	return conv.draft, true
}

func (c *Conversations) AwaitURL(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = &conversation{state: StateAwaitingURL}
}

func (c *Conversations) AwaitInterval(userID int64, draft domain.TargetID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = &conversation{state: StateAwaitingInterval, draft: draft}
}

func (c *Conversations) Reset(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, userID)
}

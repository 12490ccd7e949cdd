package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxStack bounds the command stack depth.
const MaxStack = 8

// ErrStackFull reports a push attempted against a full stack.
var ErrStackFull = fmt.Errorf("engine: command stack full")

// Stack is a bounded LIFO of CommandParams. Top is index 0.
// Invariant: at most one entry has Active == Running, and if one
// does, it is always the top entry.
type Stack struct {
	entries []CommandParam
}

// NewStack returns an empty command stack.
func NewStack() *Stack {
	return &Stack{entries: make([]CommandParam, 0, MaxStack)}
}

// Push inserts cmd at the top of the stack.
func (s *Stack) Push(cmd CommandParam) error {
	if len(s.entries) >= MaxStack {
		return ErrStackFull
	}
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	s.entries = append([]CommandParam{cmd}, s.entries...)
	return nil
}

// Top returns a pointer to the top entry, or nil if the stack is
// empty.
func (s *Stack) Top() *CommandParam {
	if len(s.entries) == 0 {
		return nil
	}
	return &s.entries[0]
}

// Pop removes the top entry.
func (s *Stack) Pop() {
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[1:]
}

// Clear empties the stack unconditionally, as ALERT_MOVE and Reset
// recovery both require.
func (s *Stack) Clear() {
	s.entries = s.entries[:0]
}

// Empty reports whether the stack has no entries.
func (s *Stack) Empty() bool {
	return len(s.entries) == 0
}

// Len reports the current depth.
func (s *Stack) Len() int {
	return len(s.entries)
}

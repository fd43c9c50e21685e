package backstep

// Stack is a bounded stack of steps. Pushing onto a full stack discards
// the oldest step.
type Stack struct {
	Limit int // Maximum depth. Zero or less is unbounded.
	Data  []*Step
}

// Push a step, dropping the oldest step if the stack is full.
func (s *Stack) Push(step *Step) {
	if s.Limit > 0 && len(s.Data) >= s.Limit {
		drop := len(s.Data) - s.Limit + 1
		clear(s.Data[:drop])
		s.Data = s.Data[drop:]
	}
	s.Data = append(s.Data, step)
}

// Pop the most recent step.
func (s *Stack) Pop() (step *Step, ok bool) {
	step, ok = s.Peek()
	if ok {
		s.Data[len(s.Data)-1] = nil
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

// Empty returns true if there are no steps.
func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

// Full returns true if the next push will discard a step.
func (s *Stack) Full() bool {
	return s.Limit > 0 && len(s.Data) >= s.Limit
}

// Peek at the most recent step.
func (s *Stack) Peek() (step *Step, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

// Reset discards all steps.
func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		clear(s.Data)
		s.Data = s.Data[:0]
	}
}

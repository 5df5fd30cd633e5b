package session

import (
	"fmt"

	"github.com/joeycumines/rofi-calc/internal/calc"
)

// AnswerSlotCount is the number of rolling answer variables.
const AnswerSlotCount = 5

// AnswerChain is the ring of rolling answer slots ans1..ansN. Slot 1 is also
// reachable as "ans" and "answer".
type AnswerChain struct {
	slots calc.AnswerSlots
	names []string
}

// NewAnswerChain registers the answer slots with the engine.
func NewAnswerChain(slots calc.AnswerSlots) (*AnswerChain, error) {
	c := &AnswerChain{slots: slots, names: make([]string, AnswerSlotCount)}
	for i := range c.names {
		c.names[i] = fmt.Sprintf("ans%d", i+1)
		var aliases []string
		if i == 0 {
			aliases = []string{"ans", "answer"}
		}
		if err := slots.RegisterAnswer(c.names[i], aliases...); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", c.names[i], err)
		}
	}
	return c, nil
}

// Names returns the slot names, newest first.
func (c *AnswerChain) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Values returns the slot values, newest first.
func (c *AnswerChain) Values() []calc.Value {
	out := make([]calc.Value, len(c.names))
	for i, name := range c.names {
		out[i] = c.slots.Answer(name)
	}
	return out
}

// Advance shifts every slot back by one and stores v in slot 1. Slots are
// rewritten from the back of the chain forward; a value moving into slot i
// has its references to slot i redirected to slot i+1, where that slot's
// old value now lives. The value dropped off the end is substituted into
// the last slot; if it was undefined, a value referring to it becomes
// undefined too.
func (c *AnswerChain) Advance(v calc.Value) {
	n := len(c.names)
	s := c.slots

	last := s.Replace(s.Answer(c.names[n-2]), c.names[n-1], s.Answer(c.names[n-1]))
	s.SetAnswer(c.names[n-1], last)

	for i := n - 2; i >= 1; i-- {
		moved := s.Replace(s.Answer(c.names[i-1]), c.names[i], s.Reference(c.names[i+1]))
		s.SetAnswer(c.names[i], moved)
	}

	s.SetAnswer(c.names[0], s.Replace(v, c.names[0], s.Reference(c.names[1])))
}

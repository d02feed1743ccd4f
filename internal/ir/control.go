package ir

import (
	"maps"
	"slices"
)

// Block slots of control instructions.
const (
	IfTrue  = 0
	IfFalse = 1

	LoopInitializer = 0
	LoopBody        = 1
	LoopContinuing  = 2
)

// CaseSelector is one selector of a switch case. A default selector has no
// value.
type CaseSelector struct {
	Value   ValueID
	Default bool
}

// Control is the payload shared by if, loop and switch instructions: the
// nested blocks it owns and the set of exits that target it.
//
// Blocks are indexed by slot. An if always has IfTrue and IfFalse. A loop
// has three slots and LoopInitializer / LoopContinuing hold NoBlockID when
// absent. A switch has one block per case, with Cases parallel to Blocks.
type Control struct {
	Blocks []BlockID
	Cases  [][]CaseSelector

	exits map[InstID]struct{}
}

func newControl(kind InstKind) *Control {
	c := &Control{}
	switch kind {
	case InstIf:
		c.Blocks = []BlockID{NoBlockID, NoBlockID}
	case InstLoop:
		c.Blocks = []BlockID{NoBlockID, NoBlockID, NoBlockID}
	}
	return c
}

// Block returns the block in slot or NoBlockID.
func (c *Control) Block(slot int) BlockID {
	if c == nil || slot < 0 || slot >= len(c.Blocks) {
		return NoBlockID
	}
	return c.Blocks[slot]
}

// SlotOf returns the slot holding blk, or -1.
func (c *Control) SlotOf(blk BlockID) int {
	if c == nil || blk == NoBlockID {
		return -1
	}
	return slices.Index(c.Blocks, blk)
}

// ForeachBlock calls fn for every present block in slot order.
func (c *Control) ForeachBlock(fn func(BlockID)) {
	if c == nil {
		return
	}
	for _, b := range c.Blocks {
		if b != NoBlockID {
			fn(b)
		}
	}
}

// AddExit registers an exit. Registering the same exit twice is a no-op.
func (c *Control) AddExit(exit InstID) {
	if c.exits == nil {
		c.exits = make(map[InstID]struct{})
	}
	c.exits[exit] = struct{}{}
}

// RemoveExit unregisters an exit and reports whether it was registered.
func (c *Control) RemoveExit(exit InstID) bool {
	if _, ok := c.exits[exit]; !ok {
		return false
	}
	delete(c.exits, exit)
	return true
}

// HasExit reports whether exit is registered.
func (c *Control) HasExit(exit InstID) bool {
	_, ok := c.exits[exit]
	return ok
}

// Exits returns the registered exits in ascending id order.
func (c *Control) Exits() []InstID {
	if c == nil || len(c.exits) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(c.exits))
}

// NumExits returns the number of registered exits.
func (c *Control) NumExits() int {
	if c == nil {
		return 0
	}
	return len(c.exits)
}

// Destroy tears down every owned block through teardown and clears the
// payload.
func (c *Control) Destroy(teardown func(BlockID)) {
	c.ForeachBlock(teardown)
	c.Blocks = nil
	c.Cases = nil
	c.exits = nil
}

package ir

// Block is an ordered list of instructions. A block is owned by exactly one
// parent: a function (its root block), a control instruction, or the module
// itself (the root block holding module-scope variables).
type Block struct {
	ID     BlockID
	Parent InstID // owning control instruction, NoInstID for root blocks
	Func   FuncID // owning function of a function root block

	insts []InstID
}

// Insts returns the instruction list. The slice must not be modified.
func (b *Block) Insts() []InstID {
	return b.insts
}

// Len returns the number of instructions in the block.
func (b *Block) Len() int {
	return len(b.insts)
}

// Empty reports whether the block has no instructions.
func (b *Block) Empty() bool {
	return len(b.insts) == 0
}

// Last returns the last instruction or NoInstID.
func (b *Block) Last() InstID {
	if len(b.insts) == 0 {
		return NoInstID
	}
	return b.insts[len(b.insts)-1]
}

// First returns the first instruction or NoInstID.
func (b *Block) First() InstID {
	if len(b.insts) == 0 {
		return NoInstID
	}
	return b.insts[0]
}

package diag

import "fmt"

// NodeKind classifies the IR node a diagnostic is attached to.
type NodeKind uint8

const (
	NodeNone NodeKind = iota
	NodeModule
	NodeFunc
	NodeBlock
	NodeInst
	NodeValue
)

func (k NodeKind) String() string {
	switch k {
	case NodeModule:
		return "module"
	case NodeFunc:
		return "func"
	case NodeBlock:
		return "block"
	case NodeInst:
		return "inst"
	case NodeValue:
		return "value"
	default:
		return "none"
	}
}

// Node identifies the offending IR node. ID is the arena handle of the node
// and Path is a readable location inside the module.
type Node struct {
	Kind NodeKind
	ID   int32
	Path string
}

// IsZero reports whether n points at nothing.
func (n Node) IsZero() bool {
	return n.Kind == NodeNone && n.Path == ""
}

func (n Node) String() string {
	if n.Path != "" {
		return n.Path
	}
	if n.Kind == NodeNone {
		return "<module>"
	}
	return fmt.Sprintf("%s#%d", n.Kind, n.ID)
}

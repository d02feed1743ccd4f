package ir

import (
	"fmt"
	"io"
	"strings"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// ShowIDs appends raw arena ids to instruction lines.
	ShowIDs bool
}

// Disassemble returns the textual form of m. The output depends only on
// the module's content, so equal modules disassemble identically.
func Disassemble(m *Module) string {
	var sb strings.Builder
	_ = DumpModule(&sb, m, DumpOptions{})
	return sb.String()
}

// DumpModule writes a human-readable representation of m.
func DumpModule(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{m: m, n: newNamer(m), opts: opts}
	if rb := m.Block(m.root); rb != nil && !rb.Empty() {
		p.block(m.root, 0, "root")
		p.sb.WriteByte('\n')
	}
	first := true
	for f := range m.Functions() {
		if !first {
			p.sb.WriteByte('\n')
		}
		first = false
		p.function(f)
	}
	_, err := io.WriteString(w, p.sb.String())
	return err
}

type printer struct {
	m    *Module
	n    *namer
	opts DumpOptions
	sb   strings.Builder
}

func (p *printer) indent(depth int) {
	for range depth {
		p.sb.WriteString("  ")
	}
}

func (p *printer) function(f *Func) {
	p.sb.WriteString(p.n.function(f.ID))
	p.sb.WriteString(" = ")
	if f.IsEntryPoint() {
		fmt.Fprintf(&p.sb, "@%s ", f.Stage)
		if f.Stage == StageCompute {
			ws := f.WorkgroupSize
			fmt.Fprintf(&p.sb, "@workgroup_size(%d, %d, %d) ", ws[0], ws[1], ws[2])
		}
	}
	p.sb.WriteString("func(")
	for i, param := range f.Params {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.sb.WriteString(p.n.typed(param))
	}
	fmt.Fprintf(&p.sb, "):%s {\n", p.m.types.String(f.Return))
	p.block(f.Block, 1, "")
	p.sb.WriteString("}\n")
}

func (p *printer) block(id BlockID, depth int, comment string) {
	p.indent(depth)
	p.sb.WriteString(p.n.block(id))
	p.sb.WriteString(": {")
	if comment != "" {
		p.sb.WriteString("  # ")
		p.sb.WriteString(comment)
	}
	p.sb.WriteByte('\n')
	b := p.m.Block(id)
	if b == nil {
		p.indent(depth + 1)
		p.sb.WriteString("<dangling block>\n")
	} else {
		for _, inst := range b.insts {
			p.inst(inst, depth+1)
		}
	}
	p.indent(depth)
	p.sb.WriteString("}\n")
}

func (p *printer) operands(ops []ValueID) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = p.n.value(op)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) inst(id InstID, depth int) {
	p.indent(depth)
	in := p.m.Inst(id)
	if in == nil {
		p.sb.WriteString("<dangling inst>\n")
		return
	}
	if len(in.Results) > 0 {
		for i, r := range in.Results {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.sb.WriteString(p.n.typed(r))
		}
		p.sb.WriteString(" = ")
	}
	p.sb.WriteString(p.mnemonic(in))
	args := p.operands(in.Operands)
	if in.Kind == InstCall {
		callee := p.n.function(in.Callee)
		if args != "" {
			args = callee + ", " + args
		} else {
			args = callee
		}
	}
	if args != "" {
		p.sb.WriteByte(' ')
		p.sb.WriteString(args)
	}
	switch {
	case in.Ctrl != nil:
		p.control(in, depth)
		return
	case in.Kind.IsExit():
		p.sb.WriteString("  # ")
		p.sb.WriteString(p.n.target(in.Target))
	}
	if p.opts.ShowIDs {
		fmt.Fprintf(&p.sb, "  # id=%d", in.ID)
	}
	p.sb.WriteByte('\n')
}

func (p *printer) mnemonic(in *Inst) string {
	switch in.Kind {
	case InstBinary:
		return in.Binary.String()
	case InstUnary:
		return in.Unary.String()
	default:
		return in.Kind.String()
	}
}

func (p *printer) control(in *Inst, depth int) {
	c := in.Ctrl
	var slots []string
	var comments []string
	switch in.Kind {
	case InstIf:
		slots = append(slots, "t: "+p.n.block(c.Block(IfTrue)), "f: "+p.n.block(c.Block(IfFalse)))
		comments = []string{"true", "false"}
	case InstLoop:
		for slot, tag := range []string{"i", "b", "c"} {
			if blk := c.Block(slot); blk != NoBlockID {
				slots = append(slots, tag+": "+p.n.block(blk))
			}
		}
		comments = []string{"initializer", "body", "continuing"}
	case InstSwitch:
		for i, blk := range c.Blocks {
			var sels []string
			if i < len(c.Cases) {
				for _, s := range c.Cases[i] {
					if s.Default {
						sels = append(sels, "default")
					} else {
						sels = append(sels, p.n.value(s.Value))
					}
				}
			}
			slots = append(slots, fmt.Sprintf("c: (%s, %s)", strings.Join(sels, " "), p.n.block(blk)))
		}
	}
	fmt.Fprintf(&p.sb, " [%s] {  # %s", strings.Join(slots, ", "), p.n.ctrl(in))
	if p.opts.ShowIDs {
		fmt.Fprintf(&p.sb, " id=%d", in.ID)
	}
	p.sb.WriteByte('\n')
	for slot, blk := range c.Blocks {
		if blk == NoBlockID {
			continue
		}
		comment := "case"
		if slot < len(comments) {
			comment = comments[slot]
		}
		p.block(blk, depth+1, comment)
	}
	p.indent(depth)
	p.sb.WriteString("}\n")
}

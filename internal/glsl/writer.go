package glsl

import (
	"fmt"
	"slices"
	"strings"

	"shade/internal/ir"
	"shade/internal/types"
)

// namer hands out unique GLSL identifiers.
type namer struct {
	used    map[string]struct{}
	counter uint32
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

func (n *namer) call(base string) string {
	name := escapeKeyword(sanitize(base))
	if _, taken := n.used[name]; !taken {
		n.used[name] = struct{}{}
		return name
	}
	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", name, n.counter)
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// sanitize maps an IR name onto the GLSL identifier alphabet. Double
// underscores are reserved in GLSL and are collapsed.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			if !strings.HasSuffix(sb.String(), "_") {
				sb.WriteByte('_')
			}
		}
	}
	s := strings.TrimRight(sb.String(), "_")
	if s == "" {
		return "v"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "v" + s
	}
	return s
}

type writer struct {
	m    *ir.Module
	ty   *types.Interner
	opts Options

	names     *namer
	typeNames map[types.TypeID]string
	structs   []types.TypeID
	exts      []string

	funcNames map[ir.FuncID]string
	values    map[ir.ValueID]string
	hoisted   map[ir.ValueID]bool

	entry   *ir.Func
	decls   strings.Builder
	globals strings.Builder
	body    strings.Builder
	out     *strings.Builder
	indent  int
}

func newWriter(m *ir.Module, opts Options) *writer {
	w := &writer{
		m:         m,
		ty:        m.Types(),
		opts:      opts,
		names:     newNamer(),
		typeNames: make(map[types.TypeID]string),
		funcNames: make(map[ir.FuncID]string),
		values:    make(map[ir.ValueID]string),
		hoisted:   make(map[ir.ValueID]bool),
	}
	w.out = &w.body
	return w
}

func (w *writer) require(ext string) {
	if !slices.Contains(w.exts, ext) {
		w.exts = append(w.exts, ext)
	}
}

func (w *writer) line(format string, args ...any) {
	w.out.WriteString(strings.Repeat("  ", w.indent))
	fmt.Fprintf(w.out, format, args...)
	w.out.WriteByte('\n')
}

// capture runs fn with output redirected and returns what it wrote.
func (w *writer) capture(fn func() error) (string, error) {
	prev := w.out
	var sb strings.Builder
	w.out = &sb
	err := fn()
	w.out = prev
	return sb.String(), err
}

func (w *writer) selectEntry() error {
	for f := range w.m.Functions() {
		if !f.IsEntryPoint() {
			continue
		}
		if w.opts.EntryPoint == "" || w.opts.EntryPoint == f.Name {
			w.entry = f
			break
		}
	}
	if w.entry == nil && w.opts.EntryPoint != "" {
		return fmt.Errorf("entry point %q not found", w.opts.EntryPoint)
	}
	if w.entry != nil && w.entry.Stage == ir.StageCompute && !w.opts.Version.SupportsCompute() {
		return fmt.Errorf("compute entry point %q needs a newer version than %s: %w",
			w.entry.Name, w.opts.Version, ErrUnsupported)
	}
	return nil
}

func (w *writer) writeModule() error {
	if err := w.selectEntry(); err != nil {
		return err
	}
	for f := range w.m.Functions() {
		if f.IsEntryPoint() {
			continue
		}
		w.funcNames[f.ID] = w.names.call(f.Name)
	}
	if err := w.writeGlobals(); err != nil {
		return err
	}
	for f := range w.m.Functions() {
		if f.IsEntryPoint() {
			continue
		}
		if err := w.writeFunction(f); err != nil {
			return err
		}
	}
	if w.entry == nil {
		w.line("layout(local_size_x = 1, local_size_y = 1, local_size_z = 1) in;")
		w.line("void unused_entry_point() {")
		w.line("}")
	} else if err := w.writeFunction(w.entry); err != nil {
		return err
	}
	done := make(map[types.TypeID]bool)
	for i := 0; i < len(w.structs); i++ {
		if err := w.declareStruct(w.structs[i], done); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeGlobals() error {
	w.out = &w.globals
	defer func() { w.out = &w.body }()
	for in := range w.m.Instructions(w.m.Root()) {
		if in.Kind != ir.InstVar {
			return fmt.Errorf("module-scope %s: %w", in.Kind, ErrUnsupported)
		}
		ptr, _ := w.ty.Lookup(w.m.ValueType(in.Results[0]))
		qualifier := ""
		switch ptr.Space {
		case types.SpacePrivate:
		case types.SpaceWorkgroup:
			qualifier = "shared "
		default:
			return fmt.Errorf("%s address space: %w", ptr.Space, ErrUnsupported)
		}
		if err := w.writeVar(in, qualifier); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) valueName(id ir.ValueID) string {
	base := "v"
	if v := w.m.Value(id); v != nil && v.Name != "" {
		base = v.Name
	}
	name := w.names.call(base)
	w.values[id] = name
	return name
}

func (w *writer) writeFunction(f *ir.Func) error {
	ret, err := w.typeName(f.Return)
	if err != nil {
		return err
	}
	name := w.funcNames[f.ID]
	if f == w.entry {
		if len(f.Params) > 0 || !w.ty.IsVoid(f.Return) {
			return fmt.Errorf("entry point %q with inputs or outputs: %w", f.Name, ErrUnsupported)
		}
		name = "main"
		if f.Stage == ir.StageCompute {
			wg := f.WorkgroupSize
			w.line("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;", wg[0], wg[1], wg[2])
		}
	}
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		t, err := w.typeName(w.m.ValueType(p))
		if err != nil {
			return err
		}
		params = append(params, t+" "+w.valueName(p))
	}
	w.line("%s %s(%s) {", ret, name, strings.Join(params, ", "))
	w.indent++
	if err := w.writeBlock(f.Block); err != nil {
		return err
	}
	w.indent--
	w.line("}")
	return nil
}

// declareStruct writes the declaration of t after every struct it contains.
func (w *writer) declareStruct(t types.TypeID, done map[types.TypeID]bool) error {
	if done[t] {
		return nil
	}
	done[t] = true
	info, _ := w.ty.StructInfo(t)
	members := make([]string, 0, len(info.Members))
	for _, mem := range info.Members {
		for inner := mem.Type; ; {
			tt, _ := w.ty.Lookup(inner)
			if tt.Kind == types.KindStruct {
				if _, err := w.typeName(inner); err != nil {
					return err
				}
				if err := w.declareStruct(inner, done); err != nil {
					return err
				}
			}
			if tt.Kind != types.KindArray {
				break
			}
			inner = tt.Elem
		}
		mt, err := w.typeName(mem.Type)
		if err != nil {
			return err
		}
		members = append(members, fmt.Sprintf("  %s %s;\n", mt, escapeKeyword(sanitize(mem.Name))))
	}
	fmt.Fprintf(&w.decls, "struct %s {\n%s};\n\n", w.typeNames[t], strings.Join(members, ""))
	return nil
}

func (w *writer) output() Output {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#version %s\n", w.opts.Version)
	for _, ext := range w.exts {
		fmt.Fprintf(&sb, "#extension %s: require\n", ext)
	}
	if w.opts.Version.ES && w.entry != nil && w.entry.Stage != ir.StageCompute {
		sb.WriteString("precision highp float;\nprecision highp int;\n")
	}
	sb.WriteByte('\n')
	sb.WriteString(w.decls.String())
	sb.WriteString(w.globals.String())
	sb.WriteString(w.body.String())
	out := Output{GLSL: sb.String(), Extensions: slices.Clone(w.exts)}
	if w.entry != nil {
		out.EntryPoint = w.entry.Name
	}
	return out
}

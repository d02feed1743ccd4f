package types

import (
	"fmt"
	"strings"
)

// String renders a type in shader syntax: vec3<f32>, array<i32, 4>,
// ptr<function, u32, read_write>. Unknown ids render as "<invalid>".
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.write(&sb, id, 0)
	return sb.String()
}

func (in *Interner) write(sb *strings.Builder, id TypeID, depth int) {
	tt, ok := in.Lookup(id)
	if !ok || depth > 32 {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindVoid, KindBool, KindI32, KindU32, KindF32, KindF16:
		sb.WriteString(tt.Kind.String())
	case KindVector:
		fmt.Fprintf(sb, "vec%d<", tt.Count)
		in.write(sb, tt.Elem, depth+1)
		sb.WriteByte('>')
	case KindMatrix:
		fmt.Fprintf(sb, "mat%dx%d<", tt.Count, tt.Rows)
		in.write(sb, tt.Elem, depth+1)
		sb.WriteByte('>')
	case KindArray:
		sb.WriteString("array<")
		in.write(sb, tt.Elem, depth+1)
		if tt.Count != ArrayRuntimeLength {
			fmt.Fprintf(sb, ", %d", tt.Count)
		}
		sb.WriteByte('>')
	case KindPointer:
		fmt.Fprintf(sb, "ptr<%s, ", tt.Space)
		in.write(sb, tt.Elem, depth+1)
		fmt.Fprintf(sb, ", %s>", tt.Access)
	case KindStruct:
		if info, ok := in.StructInfo(id); ok && info.Name != "" {
			sb.WriteString(info.Name)
			return
		}
		fmt.Fprintf(sb, "struct#%d", id)
	default:
		sb.WriteString("<invalid>")
	}
}

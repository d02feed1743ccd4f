package glsl_test

import (
	"errors"
	"strings"
	"testing"

	"shade/internal/glsl"
	"shade/internal/ir"
	"shade/internal/irgen"
	"shade/internal/testkit"
)

const header = "#version 310 es\n"

const stub = `layout(local_size_x = 1, local_size_y = 1, local_size_z = 1) in;
void unused_entry_point() {
}
`

func generate(t *testing.T, build func(b *ir.Builder), opts glsl.Options) glsl.Output {
	t.Helper()
	m, err := testkit.NewModule(build)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := glsl.Generate(m, opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return out
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder)
		want  string
	}{
		{
			name:  "constant_bool_false",
			build: testkit.ReturnFalse,
			want: header + `
bool a() {
  return false;
}
` + stub,
		},
		{
			name: "constant_bool_true",
			build: func(b *ir.Builder) {
				f := b.Function("a", b.Types().Builtins().Bool)
				b.Return(f, b.Bool(true))
			},
			want: header + `
bool a() {
  return true;
}
` + stub,
		},
		{
			name:  "if_with_results",
			build: testkit.Pick,
			want: header + `
int pick(bool c) {
  int v;
  if (c) {
    v = 1;
  } else {
    v = 2;
  }
  return v;
}
` + stub,
		},
		{
			name:  "loop_with_continuing",
			build: testkit.CountLoop,
			want: header + `
void count() {
  {
    int i = 0;
    int v;
    bool v_1;
    bool loop_init = true;
    while (true) {
      if (!loop_init) {
        int v_2 = i;
        int v_3 = (v_2 + 1);
        i = v_3;
        int v_4 = i;
        bool v_5 = (v_4 >= 100);
        if (v_5) {
          break;
        }
      }
      loop_init = false;
      v = i;
      v_1 = (v < 10);
      if (v_1) {
      } else {
        break;
      }
      continue;
    }
  }
  return;
}
` + stub,
		},
		{
			name:  "switch_and_entry_point",
			build: testkit.SwitchGlobal,
			want: header + `
uint counter = 0u;
layout(local_size_x = 64, local_size_y = 1, local_size_z = 1) in;
void main() {
  uint v = counter;
  uint v_1;
  switch (v) {
    case 1u:
    case 2u: {
      v_1 = 10u;
      break;
    }
    default: {
      counter = 7u;
      uint v_2 = counter;
      v_1 = v_2;
      break;
    }
  }
  counter = v_1;
  return;
}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := generate(t, tt.build, glsl.Options{})
			if out.GLSL != tt.want {
				t.Fatalf("GLSL mismatch\n--- got ---\n%s\n--- want ---\n%s", out.GLSL, tt.want)
			}
		})
	}
}

func TestGenerateComposites(t *testing.T) {
	out := generate(t, testkit.Composites, glsl.Options{})
	for _, want := range []string{
		"struct Pair {\n  float a;\n  int b;\n};\n",
		"float scale = 2.0f;",
		"vec3 splat(float x) {",
		"vec3 v_2 = splat(v_1);",
		"float[2] pair = ",
		"pair[0] = ",
		"Pair v_10 = Pair(v_9, 4);",
		"Pair p = v_10;",
		"float v_11 = p.a;",
	} {
		if !strings.Contains(out.GLSL, want) {
			t.Fatalf("missing %q in\n%s", want, out.GLSL)
		}
	}
	if out.EntryPoint != "main" {
		t.Fatalf("EntryPoint = %q", out.EntryPoint)
	}
}

func TestGenerateLiterals(t *testing.T) {
	tests := []struct {
		name string
		ret  func(b *ir.Builder) ir.ValueID
		want string
	}{
		{"negative_int", func(b *ir.Builder) ir.ValueID { return b.I32(-3) }, "return -3;"},
		{"min_int", func(b *ir.Builder) ir.ValueID { return b.I32(-2147483648) }, "return (-2147483647 - 1);"},
		{"uint", func(b *ir.Builder) ir.ValueID { return b.U32(7) }, "return 7u;"},
		{"whole_float", func(b *ir.Builder) ir.ValueID { return b.F32(2) }, "return 2.0f;"},
		{"fraction_float", func(b *ir.Builder) ir.ValueID { return b.F32(1.5) }, "return 1.5f;"},
		{"zero_vector", func(b *ir.Builder) ir.ValueID {
			return b.Zero(b.Types().Vec(b.Types().Builtins().F32, 3))
		}, "return vec3(0.0f);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := generate(t, func(b *ir.Builder) {
				f := b.Function("f", b.Types().Builtins().Void)
				v := tt.ret(b)
				b.Module().Func(f).Return = b.Module().ValueType(v)
				b.Return(f, v)
			}, glsl.Options{})
			if !strings.Contains(out.GLSL, "  "+tt.want+"\n") {
				t.Fatalf("missing %q in\n%s", tt.want, out.GLSL)
			}
		})
	}
}

func TestGenerateEscapesNames(t *testing.T) {
	out := generate(t, func(b *ir.Builder) {
		ty := b.Types().Builtins()
		f := b.Function("float", ty.I32)
		x := b.Param(f, "gl_x", ty.I32)
		y := b.Param(f, "a__b", ty.I32)
		b.Return(f, b.Add(x, y))
	}, glsl.Options{})
	if !strings.Contains(out.GLSL, "int float_(int _gl_x, int a_b) {") {
		t.Fatalf("names not escaped:\n%s", out.GLSL)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("invalid_module", func(t *testing.T) {
		m := ir.NewModule(nil)
		m.NewFunc("broken", m.Types().Builtins().Void)
		if _, err := glsl.Generate(m, glsl.Options{}); err == nil {
			t.Fatalf("expected validation failure")
		}
	})
	t.Run("unknown_entry_point", func(t *testing.T) {
		m, err := testkit.NewModule(testkit.SwitchGlobal)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := glsl.Generate(m, glsl.Options{EntryPoint: "nope"}); err == nil {
			t.Fatalf("expected error for missing entry point")
		}
	})
	t.Run("compute_needs_310", func(t *testing.T) {
		m, err := testkit.NewModule(testkit.SwitchGlobal)
		if err != nil {
			t.Fatal(err)
		}
		_, err = glsl.Generate(m, glsl.Options{Version: glsl.Version{Number: 300, ES: true}})
		if !errors.Is(err, glsl.ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
	})
}

func TestGenerateRandomModules(t *testing.T) {
	for seed := range uint64(32) {
		m, err := irgen.Generate(irgen.Options{Seed: seed})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		out, err := glsl.Generate(m, glsl.Options{Version: glsl.Version450})
		if err != nil {
			t.Fatalf("seed %d: %v\n%s", seed, err, ir.Disassemble(m))
		}
		if !strings.HasPrefix(out.GLSL, "#version 450\n") || !strings.Contains(out.GLSL, "void main() {") {
			t.Fatalf("seed %d: unexpected output\n%s", seed, out.GLSL)
		}
	}
}

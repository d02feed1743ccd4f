package glsl

// keywords holds GLSL reserved words and built-in names that generated
// identifiers must avoid.
var keywords = map[string]struct{}{
	// Types
	"void": {}, "bool": {}, "int": {}, "uint": {}, "float": {}, "double": {},
	"vec2": {}, "vec3": {}, "vec4": {},
	"ivec2": {}, "ivec3": {}, "ivec4": {},
	"uvec2": {}, "uvec3": {}, "uvec4": {},
	"bvec2": {}, "bvec3": {}, "bvec4": {},
	"f16vec2": {}, "f16vec3": {}, "f16vec4": {}, "float16_t": {},
	"mat2": {}, "mat3": {}, "mat4": {},
	"mat2x2": {}, "mat2x3": {}, "mat2x4": {},
	"mat3x2": {}, "mat3x3": {}, "mat3x4": {},
	"mat4x2": {}, "mat4x3": {}, "mat4x4": {},

	// Qualifiers and statements
	"attribute": {}, "const": {}, "uniform": {}, "varying": {}, "buffer": {},
	"shared": {}, "coherent": {}, "volatile": {}, "restrict": {}, "readonly": {},
	"writeonly": {}, "layout": {}, "centroid": {}, "flat": {}, "smooth": {},
	"noperspective": {}, "patch": {}, "sample": {}, "invariant": {}, "precise": {},
	"break": {}, "continue": {}, "do": {}, "for": {}, "while": {}, "switch": {},
	"case": {}, "default": {}, "if": {}, "else": {}, "subroutine": {}, "in": {},
	"out": {}, "inout": {}, "true": {}, "false": {}, "discard": {}, "return": {},
	"lowp": {}, "mediump": {}, "highp": {}, "precision": {}, "struct": {},

	// Reserved for future use
	"common": {}, "partition": {}, "active": {}, "asm": {}, "class": {}, "union": {},
	"enum": {}, "typedef": {}, "template": {}, "this": {}, "resource": {}, "goto": {},
	"inline": {}, "noinline": {}, "public": {}, "static": {}, "extern": {},
	"external": {}, "interface": {}, "long": {}, "short": {}, "half": {},
	"fixed": {}, "unsigned": {}, "superp": {}, "input": {}, "output": {},
	"sizeof": {}, "cast": {}, "namespace": {}, "using": {},

	// Built-in functions used by the writer
	"main": {}, "not": {}, "equal": {}, "notEqual": {}, "lessThan": {},
	"greaterThan": {}, "lessThanEqual": {}, "greaterThanEqual": {}, "trunc": {},
	"mod": {}, "unused_entry_point": {},
}

// escapeKeyword renames identifiers that collide with reserved words or use
// the reserved gl_ prefix.
func escapeKeyword(name string) string {
	if _, reserved := keywords[name]; reserved {
		return name + "_"
	}
	if len(name) >= 3 && name[:3] == "gl_" {
		return "_" + name
	}
	return name
}

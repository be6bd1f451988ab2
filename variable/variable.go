// Package variable implements the GLSL declaration metaprogramming types
// used to assemble shader source: ShaderVariable descriptors and an
// order-preserving, name-deduplicated Set.
package variable

import (
	"fmt"
	"strings"
)

// Qualifier is a GLSL storage qualifier.
type Qualifier string

const (
	QualifierUniform   Qualifier = "uniform"
	QualifierAttribute Qualifier = "attribute"
	QualifierVarying   Qualifier = "varying"
)

// Direction marks a vertex<->fragment traverse variable's side.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Interpolation is a GLSL interpolation qualifier.
type Interpolation string

const (
	InterpolationFlat          Interpolation = "flat"
	InterpolationSmooth        Interpolation = "smooth"
	InterpolationNoPerspective Interpolation = "noperspective"
)

// Type is a GLSL type name as accepted by Variable.Type.
type Type string

const (
	TypeFloat     Type = "float"
	TypeInt       Type = "int"
	TypeBool      Type = "bool"
	TypeVec2      Type = "vec2"
	TypeVec3      Type = "vec3"
	TypeVec4      Type = "vec4"
	TypeMat2      Type = "mat2"
	TypeMat3      Type = "mat3"
	TypeMat4      Type = "mat4"
	TypeSampler2D Type = "sampler2D"
)

// Variable is a single GLSL declaration descriptor. Equality and hashing
// for deduplication purposes are by Name only, matching the source
// system's ShaderVariable.__eq__/__hash__.
type Variable struct {
	Type          Type
	Name          string
	Value         any
	Qualifier     Qualifier
	Direction     Direction
	Interpolation Interpolation
}

// Uniform builds a uniform-qualified variable.
func Uniform(t Type, name string, value any) Variable {
	return Variable{Type: t, Name: name, Value: value, Qualifier: QualifierUniform}
}

// In builds an "in"-direction variable (vertex input / fragment receiving).
func In(t Type, name string) Variable {
	return Variable{Type: t, Name: name, Direction: DirectionIn}
}

// Out builds an "out"-direction variable.
func Out(t Type, name string) Variable {
	return Variable{Type: t, Name: name, Direction: DirectionOut}
}

// Flat builds a flat-interpolated variable.
func Flat(t Type, name string) Variable {
	return Variable{Type: t, Name: name, Interpolation: InterpolationFlat}
}

// SizeString is used to derive vertex-array attribute layouts ("f", "i",
// "2f", "3f", "4f") from a variable's GLSL type.
func (v Variable) SizeString() string {
	switch v.Type {
	case TypeFloat:
		return "f"
	case TypeInt, TypeBool:
		return "i"
	case TypeVec2:
		return "2f"
	case TypeVec3:
		return "3f"
	case TypeVec4:
		return "4f"
	default:
		return ""
	}
}

// Declaration renders the GLSL source line for this variable, in the fixed
// order interpolation -> direction -> qualifier -> type -> name.
func (v Variable) Declaration() string {
	var parts []string
	if v.Interpolation != "" {
		parts = append(parts, string(v.Interpolation))
	}
	if v.Direction != "" {
		parts = append(parts, string(v.Direction))
	}
	if v.Qualifier != "" {
		parts = append(parts, string(v.Qualifier))
	}
	parts = append(parts, string(v.Type), v.Name)
	return strings.Join(parts, " ") + ";"
}

// Traverse derives the paired fragment "in" / vertex "out" variables for a
// value that crosses the vertex->fragment boundary (fragCoord, stuv, etc).
func Traverse(t Type, name string) (fragIn, vertOut Variable) {
	base := Variable{Type: t, Name: name}
	fragIn = base
	fragIn.Direction = DirectionIn
	vertOut = base
	vertOut.Direction = DirectionOut
	return fragIn, vertOut
}

// Set is an order-preserving, name-deduplicated collection of Variables.
// Inserting a variable whose Name already exists overwrites the existing
// entry in place without disturbing insertion order — "duplicates are
// dedup'd by last occurrence" (spec invariant).
type Set struct {
	order []string
	byKey map[string]Variable
}

// NewSet creates an empty variable set.
func NewSet() *Set {
	return &Set{byKey: make(map[string]Variable)}
}

// Add inserts or overwrites a variable by name.
func (s *Set) Add(v Variable) {
	if _, exists := s.byKey[v.Name]; !exists {
		s.order = append(s.order, v.Name)
	}
	s.byKey[v.Name] = v
}

// Slice returns the variables in insertion order (last-write wins per name).
func (s *Set) Slice() []Variable {
	out := make([]Variable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byKey[name])
	}
	return out
}

// Len reports the number of distinct variables held.
func (s *Set) Len() int { return len(s.order) }

// Get looks up a variable by name.
func (s *Set) Get(name string) (Variable, bool) {
	v, ok := s.byKey[name]
	return v, ok
}

// VAODefinition returns the space-joined size-string layout and ordered
// attribute names for every "in"-direction variable in the set, used to
// build the vertex array attribute layout ("2f 2f", "vertex_position",
// "vertex_gluv").
func VAODefinition(vars []Variable) (layout string, names []string) {
	sizes := make([]string, 0, len(vars))
	for _, v := range vars {
		if v.Direction == DirectionIn {
			sizes = append(sizes, v.SizeString())
			names = append(names, v.Name)
		}
	}
	return strings.Join(sizes, " "), names
}

// String renders a human-readable form for debugging/logging.
func (v Variable) String() string {
	return fmt.Sprintf("%s %s = %v", v.Type, v.Name, v.Value)
}

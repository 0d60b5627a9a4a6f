package schema

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Kind classifies how a single parameter may receive its value during a call.
// The stages are ordered: positional-only parameters come first, then
// positional-or-keyword, then a single optional variadic-positional catch-all,
// then keyword-only, then a single optional variadic-keyword catch-all.
type Kind int

const (
	PositionalOnly Kind = iota
	PositionalOrKeyword
	VarPositional
	KeywordOnly
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case VarPositional:
		return "variadic-positional"
	case KeywordOnly:
		return "keyword-only"
	case VarKeyword:
		return "variadic-keyword"
	default:
		return fmt.Sprintf("unknown-kind(%d)", int(k))
	}
}

// AllowsName reports whether a parameter of this kind may be matched against
// a named wire value.
func (k Kind) AllowsName() bool {
	return k == PositionalOrKeyword || k == KeywordOnly || k == VarKeyword
}

// AllowsPosition reports whether a parameter of this kind may be matched
// against a positional wire value.
func (k Kind) AllowsPosition() bool {
	return k == PositionalOnly || k == PositionalOrKeyword || k == VarPositional
}

// Variadic reports whether the parameter aggregates all remaining unmatched
// wire values instead of binding exactly one.
func (k Kind) Variadic() bool {
	return k == VarPositional || k == VarKeyword
}

// Type is the closed set of primitive wire types a parameter can bind.
// TypeUnspecified is a valid state for a built signature, but the binder
// refuses to resolve such a parameter.
type Type int

const (
	TypeUnspecified Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeUnspecified:
		return "unspecified"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("unknown-type(%d)", int(t))
	}
}

// CtyType returns the cty type used to pull a wire value for this primitive.
// Integers and floats share cty.Number; the integer narrowing happens when
// the value lands in the handler's field.
func (t Type) CtyType() cty.Type {
	switch t {
	case TypeBool:
		return cty.Bool
	case TypeInt, TypeFloat:
		return cty.Number
	case TypeString:
		return cty.String
	default:
		return cty.NilType
	}
}

// Param describes one parameter of a registered procedure.
type Param struct {
	Name    string
	Type    Type
	Default *cty.Value // nil when the parameter has no default
	Kind    Kind
}

// HasDefault reports whether the parameter carries a registration-time default.
func (p Param) HasDefault() bool {
	return p.Default != nil
}

// Signature is the ordered, immutable parameter metadata for one procedure.
// It is built once at registration and shared read-only by every dispatch.
type Signature struct {
	Params []Param
}

// SignatureProvider lets an input type declare its parameter list explicitly
// instead of having it derived from struct fields. Implementations must
// return the same signature on every call.
type SignatureProvider interface {
	ProcedureSignature() (Signature, error)
}

// Validate checks the structural invariants of a signature: unique non-empty
// names, monotonic kind ordering, at most one variadic of each flavor,
// defaults forming a contiguous trailing run among positional parameters,
// and no defaults on variadic parameters.
func (s Signature) Validate() error {
	seen := make(map[string]struct{}, len(s.Params))
	varPositional := 0
	varKeyword := 0
	lastKind := PositionalOnly
	defaultSeen := false

	for i, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("parameter %d has an empty name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Kind < lastKind {
			return fmt.Errorf("parameter %q: %s parameter cannot follow a %s one", p.Name, p.Kind, lastKind)
		}
		lastKind = p.Kind

		switch p.Kind {
		case VarPositional:
			varPositional++
		case VarKeyword:
			varKeyword++
		}
		if p.Kind.Variadic() && p.HasDefault() {
			return fmt.Errorf("parameter %q: %s parameter cannot carry a default", p.Name, p.Kind)
		}

		if p.Kind == PositionalOnly || p.Kind == PositionalOrKeyword {
			if p.HasDefault() {
				defaultSeen = true
			} else if defaultSeen {
				return fmt.Errorf("parameter %q: non-default positional parameter follows a defaulted one", p.Name)
			}
		}
	}

	if varPositional > 1 {
		return fmt.Errorf("signature declares %d variadic-positional parameters, at most one allowed", varPositional)
	}
	if varKeyword > 1 {
		return fmt.Errorf("signature declares %d variadic-keyword parameters, at most one allowed", varKeyword)
	}
	return nil
}

package bind

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/vk/typedrpc/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Procedure holds the compiled Go parts of a registered procedure: a
// constructor for its input struct and the handler function itself. The
// handler must have the shape
//
//	func(ctx context.Context, in *Input) (any, error)
//
// where Input is the struct type produced by NewInput. NewInput may be nil
// for procedures that take no arguments.
type Procedure struct {
	NewInput func() any
	Fn       any
}

var (
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType      = reflect.TypeOf((*error)(nil)).Elem()
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	ctyValueType = reflect.TypeOf(cty.Value{})
	varPosType   = reflect.TypeOf([]cty.Value(nil))
	varKwType    = reflect.TypeOf(map[string]cty.Value(nil))
)

// Binder is the compiled form of one procedure: its signature descriptor
// plus the field mapping needed to replay a bind on every call. A Binder is
// immutable after construction and safe for concurrent use.
type Binder struct {
	sig      schema.Signature
	newInput func() any
	fn       reflect.Value
	inType   reflect.Type // pointer-to-struct type of the handler's input argument
	fields   []int        // input struct field index per parameter
}

// NewBinder introspects a procedure once and compiles it into a Binder.
// This runs at registration time only; correctness, not speed, governs it.
func NewBinder(proc Procedure) (*Binder, error) {
	if proc.Fn == nil {
		return nil, &SignatureError{Err: fmt.Errorf("procedure has no handler function")}
	}
	fn := reflect.ValueOf(proc.Fn)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return nil, &SignatureError{Err: fmt.Errorf("handler must be a function, got %s", ft)}
	}
	if ft.NumIn() != 2 || ft.In(0) != ctxType {
		return nil, &SignatureError{Err: fmt.Errorf("handler must take (context.Context, *Input), got %s", ft)}
	}
	inType := ft.In(1)
	if inType.Kind() != reflect.Ptr || inType.Elem().Kind() != reflect.Struct {
		return nil, &SignatureError{Err: fmt.Errorf("handler input must be a pointer to struct, got %s", inType)}
	}
	if ft.NumOut() != 2 || ft.Out(0) != anyType || ft.Out(1) != errType {
		return nil, &SignatureError{Err: fmt.Errorf("handler must return (any, error), got %s", ft)}
	}

	b := &Binder{newInput: proc.NewInput, fn: fn, inType: inType}

	if proc.NewInput == nil {
		return b, nil
	}
	input := proc.NewInput()
	if got := reflect.TypeOf(input); got != inType {
		return nil, &SignatureError{Err: fmt.Errorf("NewInput returns %s but handler takes %s", got, inType)}
	}

	var err error
	if provider, ok := input.(schema.SignatureProvider); ok {
		err = b.compileProvided(provider)
	} else {
		err = b.compileFromTags()
	}
	if err != nil {
		return nil, &SignatureError{Err: err}
	}
	if err := b.sig.Validate(); err != nil {
		return nil, &SignatureError{Err: err}
	}
	return b, nil
}

// Signature returns the descriptor set the binder replays on each call.
func (b *Binder) Signature() schema.Signature { return b.sig }

// compileFromTags derives the signature from the input struct's fields, in
// declaration order. The `rpc` tag gives the parameter name and kind, the
// `default` tag gives the registration-time default literal.
func (b *Binder) compileFromTags() error {
	st := b.inType.Elem()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		name, kind, ok, err := parseTag(field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		param := schema.Param{Name: name, Kind: kind}
		switch kind {
		case schema.VarPositional:
			if field.Type != varPosType {
				return fmt.Errorf("field %s: variadic-positional parameters must be []cty.Value, got %s", field.Name, field.Type)
			}
		case schema.VarKeyword:
			if field.Type != varKwType {
				return fmt.Errorf("field %s: variadic-keyword parameters must be map[string]cty.Value, got %s", field.Name, field.Type)
			}
		default:
			param.Type, err = primitiveFor(field.Type)
			if err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}

		if lit, hasDefault := field.Tag.Lookup("default"); hasDefault {
			dv, err := parseDefault(lit, param)
			if err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			param.Default = &dv
		}

		b.sig.Params = append(b.sig.Params, param)
		b.fields = append(b.fields, i)
	}
	return nil
}

// compileProvided takes the explicitly declared signature and maps each of
// its parameters onto the input struct field carrying the matching rpc tag.
func (b *Binder) compileProvided(provider schema.SignatureProvider) error {
	sig, err := provider.ProcedureSignature()
	if err != nil {
		return fmt.Errorf("declared signature: %w", err)
	}

	st := b.inType.Elem()
	byTag := make(map[string]int, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		if name, _, ok, err := parseTag(field); err == nil && ok {
			byTag[name] = i
		}
	}

	for _, p := range sig.Params {
		idx, ok := byTag[p.Name]
		if !ok {
			return fmt.Errorf("declared parameter %q has no matching field in %s", p.Name, st)
		}
		if err := checkFieldFor(st.Field(idx), p); err != nil {
			return err
		}
		b.fields = append(b.fields, idx)
	}
	b.sig = sig
	return nil
}

// parseTag reads a field's `rpc:"name[,option]"` tag. Untagged fields are
// not parameters.
func parseTag(field reflect.StructField) (string, schema.Kind, bool, error) {
	tag, ok := field.Tag.Lookup("rpc")
	if !ok {
		return "", 0, false, nil
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" || name == "-" {
		return "", 0, false, nil
	}

	kind := schema.PositionalOrKeyword
	if len(parts) > 1 && parts[1] != "" {
		switch parts[1] {
		case "posonly":
			kind = schema.PositionalOnly
		case "kwonly":
			kind = schema.KeywordOnly
		case "varpos":
			kind = schema.VarPositional
		case "varkw":
			kind = schema.VarKeyword
		default:
			return "", 0, false, fmt.Errorf("field %s: unknown rpc tag option %q", field.Name, parts[1])
		}
	}
	return name, kind, true, nil
}

// primitiveFor maps a Go field type onto the closed primitive set. Fields
// typed any or cty.Value are legal but untyped: they build fine and fail
// every bind, never silently skip. Byte slices are rejected outright
// instead of being declared-but-never-bound.
func primitiveFor(t reflect.Type) (schema.Type, error) {
	if t == ctyValueType {
		return schema.TypeUnspecified, nil
	}
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return schema.TypeUnspecified, nil
		}
	case reflect.Bool:
		return schema.TypeBool, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return schema.TypeInt, nil
	case reflect.Float32, reflect.Float64:
		return schema.TypeFloat, nil
	case reflect.String:
		return schema.TypeString, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.TypeUnspecified, fmt.Errorf("byte-string parameters are not supported")
		}
	}
	return schema.TypeUnspecified, fmt.Errorf("unsupported parameter type %s", t)
}

// checkFieldFor verifies that a struct field can hold values bound for the
// declared parameter. A cty.Value field accepts any declaration.
func checkFieldFor(field reflect.StructField, p schema.Param) error {
	switch p.Kind {
	case schema.VarPositional:
		if field.Type != varPosType {
			return fmt.Errorf("declared parameter %q: field %s must be []cty.Value", p.Name, field.Name)
		}
		return nil
	case schema.VarKeyword:
		if field.Type != varKwType {
			return fmt.Errorf("declared parameter %q: field %s must be map[string]cty.Value", p.Name, field.Name)
		}
		return nil
	}
	if field.Type == ctyValueType || field.Type.Kind() == reflect.Interface {
		return nil
	}
	derived, err := primitiveFor(field.Type)
	if err != nil {
		return fmt.Errorf("declared parameter %q: %w", p.Name, err)
	}
	if derived != p.Type {
		return fmt.Errorf("declared parameter %q is %s but field %s holds %s", p.Name, p.Type, field.Name, derived)
	}
	return nil
}

// parseDefault turns a `default` tag literal into the parameter's wire value.
func parseDefault(lit string, p schema.Param) (cty.Value, error) {
	if p.Kind.Variadic() {
		return cty.NilVal, fmt.Errorf("%s parameter cannot carry a default", p.Kind)
	}
	switch p.Type {
	case schema.TypeBool:
		v, err := strconv.ParseBool(lit)
		if err != nil {
			return cty.NilVal, fmt.Errorf("default %q is not a bool: %w", lit, err)
		}
		return cty.BoolVal(v), nil
	case schema.TypeInt:
		v, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return cty.NilVal, fmt.Errorf("default %q is not an int: %w", lit, err)
		}
		return cty.NumberIntVal(v), nil
	case schema.TypeFloat:
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return cty.NilVal, fmt.Errorf("default %q is not a float: %w", lit, err)
		}
		return cty.NumberFloatVal(v), nil
	case schema.TypeString:
		return cty.StringVal(lit), nil
	default:
		return cty.NilVal, fmt.Errorf("default requires a typed parameter")
	}
}

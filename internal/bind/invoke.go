package bind

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/typedrpc/internal/call"
	"github.com/vk/typedrpc/internal/ctxlog"
	"github.com/vk/typedrpc/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Invoke resolves every parameter of the compiled signature against the
// live call context, invokes the target handler and writes its serialized
// return value back through the context. All per-call state lives on this
// frame; nothing mutable is shared between concurrent invocations.
//
// Resolution order per parameter, in descriptor order: by name when the
// kind allows one, then by position (the parameter's ordinal among all
// descriptors), then the registration-time default, else the argument is
// missing. Variadic parameters collect every remaining unmatched
// positional or named wire value.
func (b *Binder) Invoke(ctx context.Context, c call.Context) error {
	logger := ctxlog.FromContext(ctx)

	var input reflect.Value
	if b.newInput != nil {
		input = reflect.ValueOf(b.newInput())
	} else {
		input = reflect.Zero(b.inType)
	}

	if b.newInput != nil {
		fieldsVal := input.Elem()
		consumed := make(map[string]bool, len(b.sig.Params))

		for i, p := range b.sig.Params {
			field := fieldsVal.Field(b.fields[i])
			switch p.Kind {
			case schema.VarPositional:
				if err := bindVarPositional(c, i, field); err != nil {
					return err
				}
			case schema.VarKeyword:
				if err := bindVarKeyword(c, consumed, field); err != nil {
					return err
				}
			default:
				if err := bindScalar(c, p, i, consumed, field); err != nil {
					return err
				}
			}
		}
	}

	logger.Debug("Arguments bound, calling handler.", "params", len(b.sig.Params))
	out, err := b.callTarget(ctx, input)
	if err != nil {
		return &ApplicationError{Err: err}
	}

	payload, err := marshalResult(out)
	if err != nil {
		return &ApplicationError{Err: err}
	}
	return c.Reply(payload)
}

// bindScalar resolves one non-variadic parameter into its struct field.
func bindScalar(c call.Context, p schema.Param, ordinal int, consumed map[string]bool, field reflect.Value) error {
	if p.Type == schema.TypeUnspecified {
		return &UntypedParameterError{Name: p.Name}
	}
	want := p.Type.CtyType()

	var val cty.Value
	found := false
	if p.Kind.AllowsName() {
		v, ok, err := c.Named(p.Name, want)
		if err != nil {
			return err
		}
		if ok {
			val, found = v, true
			consumed[p.Name] = true
		}
	}
	if !found && p.Kind.AllowsPosition() {
		v, ok, err := c.Positional(ordinal, want)
		if err != nil {
			return err
		}
		if ok {
			val, found = v, true
		}
	}
	if !found {
		if !p.HasDefault() {
			return &MissingArgumentError{Name: p.Name}
		}
		val = *p.Default
	}

	if field.Type() == ctyValueType {
		field.Set(reflect.ValueOf(val))
		return nil
	}
	if err := gocty.FromCtyValue(val, field.Addr().Interface()); err != nil {
		// Typically a fractional number landing in an integer field.
		return &call.DecodeError{Ref: p.Name, Want: want, Err: err}
	}
	return nil
}

// bindVarPositional collects every positional wire value from the
// parameter's ordinal onward into its []cty.Value field, in call order.
func bindVarPositional(c call.Context, ordinal int, field reflect.Value) error {
	total := c.PositionalCount()
	if total <= ordinal {
		return nil
	}
	vals := make([]cty.Value, 0, total-ordinal)
	for j := ordinal; j < total; j++ {
		v, ok, err := c.Positional(j, cty.DynamicPseudoType)
		if err != nil {
			return err
		}
		if !ok {
			// Explicit null slot; keep the arity intact.
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		vals = append(vals, v)
	}
	field.Set(reflect.ValueOf(vals))
	return nil
}

// bindVarKeyword collects every named wire value not consumed by an earlier
// parameter into the map[string]cty.Value field.
func bindVarKeyword(c call.Context, consumed map[string]bool, field reflect.Value) error {
	vals := make(map[string]cty.Value)
	for _, name := range c.NamedKeys() {
		if consumed[name] {
			continue
		}
		v, ok, err := c.Named(name, cty.DynamicPseudoType)
		if err != nil {
			return err
		}
		if !ok {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		vals[name] = v
	}
	field.Set(reflect.ValueOf(vals))
	return nil
}

// callTarget invokes the handler, converting a panic into a plain error so
// a broken procedure can never take the dispatching worker down with it.
func (b *Binder) callTarget(ctx context.Context, input reflect.Value) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("handler panicked: %v", r)
		}
	}()
	results := b.fn.Call([]reflect.Value{reflect.ValueOf(ctx), input})
	if e, _ := results[1].Interface().(error); e != nil {
		return nil, e
	}
	return results[0].Interface(), nil
}

// Package arith bundles the built-in arithmetic procedures.
package arith

import (
	"context"
	"fmt"

	"github.com/vk/typedrpc/internal/bind"
	"github.com/vk/typedrpc/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// AddInput defines the arguments for the 'add' procedure.
type AddInput struct {
	A int `rpc:"a"`
	B int `rpc:"b" default:"10"`
}

// OnAdd is the handler for the 'add' procedure.
func OnAdd(ctx context.Context, in *AddInput) (any, error) {
	return in.A + in.B, nil
}

// SumInput collects every positional argument of the 'sum' procedure.
type SumInput struct {
	Values []cty.Value `rpc:"values,varpos"`
}

// OnSum adds up an arbitrary number of positional values.
func OnSum(ctx context.Context, in *SumInput) (any, error) {
	total := 0.0
	for i, v := range in.Values {
		if v.IsNull() || !v.Type().Equals(cty.Number) {
			return nil, fmt.Errorf("value %d is not a number", i)
		}
		f, _ := v.AsBigFloat().Float64()
		total += f
	}
	return total, nil
}

// DivInput defines the arguments for the 'div' procedure. Both operands
// are positional-only.
type DivInput struct {
	A float64 `rpc:"a,posonly"`
	B float64 `rpc:"b,posonly"`
}

// OnDiv is the handler for the 'div' procedure.
func OnDiv(ctx context.Context, in *DivInput) (any, error) {
	if in.B == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return in.A / in.B, nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	mustRegister(r, "add", bind.Procedure{
		NewInput: func() any { return new(AddInput) },
		Fn:       OnAdd,
	})
	mustRegister(r, "sum", bind.Procedure{
		NewInput: func() any { return new(SumInput) },
		Fn:       OnSum,
	})
	mustRegister(r, "div", bind.Procedure{
		NewInput: func() any { return new(DivInput) },
		Fn:       OnDiv,
	})
}

func mustRegister(r *registry.Registry, name string, proc bind.Procedure) {
	if err := r.Register(name, proc); err != nil {
		panic(fmt.Sprintf("failed to register built-in procedure %q: %v", name, err))
	}
}

// Package text bundles the built-in string procedures.
package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/typedrpc/internal/bind"
	"github.com/vk/typedrpc/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// GreetInput defines the arguments for the 'greet' procedure.
type GreetInput struct {
	Name string `rpc:"name"`
}

// OnGreet is the handler for the 'greet' procedure.
func OnGreet(ctx context.Context, in *GreetInput) (any, error) {
	return "Hello, " + in.Name, nil
}

// PadInput defines the arguments for the 'pad' procedure. The fill string
// can only be supplied by name.
type PadInput struct {
	Text  string `rpc:"text"`
	Width int    `rpc:"width"`
	Fill  string `rpc:"fill,kwonly" default:" "`
}

// OnPad left-pads text to the requested width.
func OnPad(ctx context.Context, in *PadInput) (any, error) {
	if in.Fill == "" {
		return nil, fmt.Errorf("fill cannot be empty")
	}
	out := in.Text
	for len(out) < in.Width {
		out = in.Fill + out
	}
	return out, nil
}

// ConcatInput defines the arguments for the 'concat' procedure: a
// separator followed by any number of positional string parts.
type ConcatInput struct {
	Sep   string      `rpc:"sep" default:","`
	Parts []cty.Value `rpc:"parts,varpos"`
}

// OnConcat joins its positional arguments with the separator.
func OnConcat(ctx context.Context, in *ConcatInput) (any, error) {
	parts := make([]string, 0, len(in.Parts))
	for i, v := range in.Parts {
		if v.IsNull() || !v.Type().Equals(cty.String) {
			return nil, fmt.Errorf("part %d is not a string", i)
		}
		parts = append(parts, v.AsString())
	}
	return strings.Join(parts, in.Sep), nil
}

// AnnotateInput defines the arguments for the 'annotate' procedure: a text
// plus any extra named values, collected as tags.
type AnnotateInput struct {
	Text string               `rpc:"text"`
	Tags map[string]cty.Value `rpc:"tags,varkw"`
}

// OnAnnotate echoes the text together with its collected tags.
func OnAnnotate(ctx context.Context, in *AnnotateInput) (any, error) {
	tags := cty.EmptyObjectVal
	if len(in.Tags) > 0 {
		tags = cty.ObjectVal(in.Tags)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"text": cty.StringVal(in.Text),
		"tags": tags,
	}), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	procs := map[string]bind.Procedure{
		"greet":    {NewInput: func() any { return new(GreetInput) }, Fn: OnGreet},
		"pad":      {NewInput: func() any { return new(PadInput) }, Fn: OnPad},
		"concat":   {NewInput: func() any { return new(ConcatInput) }, Fn: OnConcat},
		"annotate": {NewInput: func() any { return new(AnnotateInput) }, Fn: OnAnnotate},
	}
	for name, proc := range procs {
		if err := r.Register(name, proc); err != nil {
			panic(fmt.Sprintf("failed to register built-in procedure %q: %v", name, err))
		}
	}
}

package bind_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/typedrpc/internal/bind"
	"github.com/vk/typedrpc/internal/call"
	"github.com/zclconf/go-cty/cty"
)

func newCall(t *testing.T, params string) *call.JSON {
	t.Helper()
	c, err := call.NewJSON(json.RawMessage(params), 0)
	require.NoError(t, err)
	return c
}

type addInput struct {
	A int `rpc:"a"`
	B int `rpc:"b" default:"10"`
}

func addBinder(t *testing.T) *bind.Binder {
	t.Helper()
	b, err := bind.NewBinder(bind.Procedure{
		NewInput: func() any { return new(addInput) },
		Fn: func(ctx context.Context, in *addInput) (any, error) {
			return in.A + in.B, nil
		},
	})
	require.NoError(t, err)
	return b
}

func TestInvokeResolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("named argument with default applied", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `{"a": 5}`)
		require.NoError(t, addBinder(t).Invoke(ctx, c))
		require.Equal(t, "15", string(c.Response()))
	})

	t.Run("positional arguments override the default", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `[5, 20]`)
		require.NoError(t, addBinder(t).Invoke(ctx, c))
		require.Equal(t, "25", string(c.Response()))
	})

	t.Run("missing required argument", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `{}`)
		err := addBinder(t).Invoke(ctx, c)
		var missing *bind.MissingArgumentError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "a", missing.Name)
		require.False(t, c.Replied())
	})

	t.Run("by-name and by-position calls agree", func(t *testing.T) {
		t.Parallel()
		named := newCall(t, `{"a": 3, "b": 4}`)
		positional := newCall(t, `[3, 4]`)
		b := addBinder(t)
		require.NoError(t, b.Invoke(ctx, named))
		require.NoError(t, b.Invoke(ctx, positional))
		require.Equal(t, string(named.Response()), string(positional.Response()))
	})

	t.Run("named argument order is irrelevant", func(t *testing.T) {
		t.Parallel()
		first := newCall(t, `{"a": 1, "b": 2}`)
		second := newCall(t, `{"b": 2, "a": 1}`)
		b := addBinder(t)
		require.NoError(t, b.Invoke(ctx, first))
		require.NoError(t, b.Invoke(ctx, second))
		require.Equal(t, string(first.Response()), string(second.Response()))
	})

	t.Run("name wins over position for the same parameter", func(t *testing.T) {
		t.Parallel()
		type in struct {
			A int `rpc:"a"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return in.A, nil },
		})
		require.NoError(t, err)
		c := newCall(t, `{"a": 7}`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "7", string(c.Response()))
	})

	t.Run("positional-only parameter ignores its name", func(t *testing.T) {
		t.Parallel()
		type in struct {
			A int `rpc:"a,posonly" default:"42"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return in.A, nil },
		})
		require.NoError(t, err)

		// Supplied by name only: the lookup must not match, the default applies.
		c := newCall(t, `{"a": 7}`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "42", string(c.Response()))
	})

	t.Run("keyword-only parameter ignores its position", func(t *testing.T) {
		t.Parallel()
		type in struct {
			A int `rpc:"a"`
			K int `rpc:"k,kwonly" default:"-1"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return in.K, nil },
		})
		require.NoError(t, err)

		c := newCall(t, `[1, 99]`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "-1", string(c.Response()))
	})

	t.Run("untyped parameter always fails the bind", func(t *testing.T) {
		t.Parallel()
		type in struct {
			V any `rpc:"v"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return nil, nil },
		})
		require.NoError(t, err)

		// Even a call that supplies the value fails; it is never skipped.
		c := newCall(t, `{"v": 1}`)
		err = b.Invoke(ctx, c)
		var untyped *bind.UntypedParameterError
		require.ErrorAs(t, err, &untyped)
		require.Equal(t, "v", untyped.Name)
	})

	t.Run("wrong wire kind surfaces a DecodeError", func(t *testing.T) {
		t.Parallel()
		type in struct {
			Name string `rpc:"name"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return "Hello, " + in.Name, nil },
		})
		require.NoError(t, err)

		c := newCall(t, `{"name": 5}`)
		err = b.Invoke(ctx, c)
		var decodeErr *call.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("fractional number never lands in an int parameter", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `{"a": 1.5, "b": 1}`)
		err := addBinder(t).Invoke(ctx, c)
		var decodeErr *call.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Equal(t, "a", decodeErr.Ref)
	})
}

func TestInvokeVariadics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("variadic-positional collects every extra value in call order", func(t *testing.T) {
		t.Parallel()
		type in struct {
			First int         `rpc:"first"`
			Rest  []cty.Value `rpc:"rest,varpos"`
		}
		var got []cty.Value
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn: func(ctx context.Context, in *in) (any, error) {
				got = in.Rest
				return len(in.Rest), nil
			},
		})
		require.NoError(t, err)

		c := newCall(t, `[1, "x", true, 2]`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "3", string(c.Response()))
		require.Len(t, got, 3)
		require.True(t, got[0].RawEquals(cty.StringVal("x")))
		require.True(t, got[1].RawEquals(cty.True))
		require.True(t, got[2].RawEquals(cty.NumberIntVal(2)))
	})

	t.Run("variadic-positional is empty when nothing remains", func(t *testing.T) {
		t.Parallel()
		type in struct {
			First int         `rpc:"first"`
			Rest  []cty.Value `rpc:"rest,varpos"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn: func(ctx context.Context, in *in) (any, error) {
				return len(in.Rest), nil
			},
		})
		require.NoError(t, err)

		c := newCall(t, `[1]`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "0", string(c.Response()))
	})

	t.Run("variadic-keyword collects every unmatched name", func(t *testing.T) {
		t.Parallel()
		type in struct {
			Text string               `rpc:"text"`
			Tags map[string]cty.Value `rpc:"tags,varkw"`
		}
		var got map[string]cty.Value
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn: func(ctx context.Context, in *in) (any, error) {
				got = in.Tags
				return len(in.Tags), nil
			},
		})
		require.NoError(t, err)

		c := newCall(t, `{"text": "hi", "x": 1, "y": "z"}`)
		require.NoError(t, b.Invoke(ctx, c))
		require.Equal(t, "2", string(c.Response()))
		require.Len(t, got, 2)
		require.True(t, got["x"].RawEquals(cty.NumberIntVal(1)))
		require.True(t, got["y"].RawEquals(cty.StringVal("z")))
	})
}

func TestInvokeTargetFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("handler error becomes an ApplicationError", func(t *testing.T) {
		t.Parallel()
		type in struct {
			A float64 `rpc:"a"`
			B float64 `rpc:"b"`
		}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn: func(ctx context.Context, in *in) (any, error) {
				if in.B == 0 {
					return nil, errors.New("division by zero")
				}
				return in.A / in.B, nil
			},
		})
		require.NoError(t, err)

		c := newCall(t, `[1, 0]`)
		err = b.Invoke(ctx, c)
		var appErr *bind.ApplicationError
		require.ErrorAs(t, err, &appErr)
		require.Contains(t, err.Error(), "division by zero")
		require.False(t, c.Replied())
	})

	t.Run("handler panic is recovered into an ApplicationError", func(t *testing.T) {
		t.Parallel()
		type in struct{}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn: func(ctx context.Context, in *in) (any, error) {
				panic("boom")
			},
		})
		require.NoError(t, err)

		c := newCall(t, `[]`)
		err = b.Invoke(ctx, c)
		var appErr *bind.ApplicationError
		require.ErrorAs(t, err, &appErr)
		require.Contains(t, err.Error(), "boom")
	})
}

func TestInvokeResponses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newConstBinder := func(t *testing.T, result any) *bind.Binder {
		t.Helper()
		type in struct{}
		b, err := bind.NewBinder(bind.Procedure{
			NewInput: func() any { return new(in) },
			Fn:       func(ctx context.Context, in *in) (any, error) { return result, nil },
		})
		require.NoError(t, err)
		return b
	}

	t.Run("scalar results serialize to their JSON literals", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			result any
			wire   string
		}{
			{true, "true"},
			{42, "42"},
			{2.5, "2.5"},
			{"hi", `"hi"`},
			{nil, "null"},
			{cty.NumberIntVal(7), "7"},
		}
		for _, tc := range cases {
			c := newCall(t, `[]`)
			require.NoError(t, newConstBinder(t, tc.result).Invoke(ctx, c))
			require.Equal(t, tc.wire, string(c.Response()), "result %v", tc.result)
		}
	})

	t.Run("over-length result fails instead of truncating", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `[]`)
		err := newConstBinder(t, strings.Repeat("a", call.DefaultReplyLimit)).Invoke(ctx, c)
		var tooLarge *call.ResponseTooLargeError
		require.ErrorAs(t, err, &tooLarge)
		require.False(t, c.Replied())
	})

	t.Run("unserializable result is the procedure's failure", func(t *testing.T) {
		t.Parallel()
		c := newCall(t, `[]`)
		err := newConstBinder(t, make(chan int)).Invoke(ctx, c)
		var appErr *bind.ApplicationError
		require.ErrorAs(t, err, &appErr)
	})
}

func TestInvokeConcurrentIsolation(t *testing.T) {
	t.Parallel()

	b := addBinder(t)
	const calls = 64

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newCall(t, fmt.Sprintf(`{"a": %d}`, i))
			if err := b.Invoke(context.Background(), c); err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			want := fmt.Sprintf("%d", i+10)
			if got := string(c.Response()); got != want {
				t.Errorf("call %d: got %s, want %s", i, got, want)
			}
		}(i)
	}
	wg.Wait()
}

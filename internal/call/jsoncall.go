package call

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// JSON is a call context backed by the raw `params` member of a JSON-RPC
// request. An object carries named values, an array carries positional
// values, and null (or an absent member) carries none. Each instance is
// owned by exactly one dispatch and must not be shared across calls.
type JSON struct {
	named      map[string]json.RawMessage
	positional []json.RawMessage
	limit      int
	response   []byte
	replied    bool
}

// NewJSON parses the params member of a request into a call context with
// the given reply capacity. A non-positive limit falls back to
// DefaultReplyLimit.
func NewJSON(params json.RawMessage, limit int) (*JSON, error) {
	if limit <= 0 {
		limit = DefaultReplyLimit
	}
	c := &JSON{limit: limit}
	if len(params) == 0 {
		return c, nil
	}

	dec := json.NewDecoder(bytes.NewReader(params))
	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("malformed params: %w", err)
	}
	if t == nil {
		// JSON `null`
		return c, nil
	}
	d, ok := t.(json.Delim)
	if !ok {
		return nil, errors.New("params must be an object, an array or null")
	}
	switch d.String() {
	case "{":
		if err := json.Unmarshal(params, &c.named); err != nil {
			return nil, fmt.Errorf("malformed named params: %w", err)
		}
	case "[":
		if err := json.Unmarshal(params, &c.positional); err != nil {
			return nil, fmt.Errorf("malformed positional params: %w", err)
		}
	default:
		return nil, errors.New("params must be an object, an array or null")
	}
	return c, nil
}

// Named implements Context.
func (c *JSON) Named(name string, want cty.Type) (cty.Value, bool, error) {
	raw, ok := c.named[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	return c.decode(raw, want, name)
}

// Positional implements Context.
func (c *JSON) Positional(index int, want cty.Type) (cty.Value, bool, error) {
	if index < 0 || index >= len(c.positional) {
		return cty.NilVal, false, nil
	}
	return c.decode(c.positional[index], want, fmt.Sprintf("#%d", index))
}

// NamedKeys implements Context. Keys are sorted so aggregation order is
// stable across runs.
func (c *JSON) NamedKeys() []string {
	keys := make([]string, 0, len(c.named))
	for k := range c.named {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PositionalCount implements Context.
func (c *JSON) PositionalCount() int {
	return len(c.positional)
}

// Reply implements Context.
func (c *JSON) Reply(payload []byte) error {
	if len(payload) > c.limit {
		return &ResponseTooLargeError{Size: len(payload), Limit: c.limit}
	}
	c.response = payload
	c.replied = true
	return nil
}

// Replied reports whether a response has been written.
func (c *JSON) Replied() bool { return c.replied }

// Response returns the payload written by Reply.
func (c *JSON) Response() []byte { return c.response }

// decode reads one raw JSON value as the wanted cty type. The token kind
// must match the wanted primitive exactly: a JSON number is never read as
// a string and vice versa, so a mistyped argument surfaces as a
// DecodeError instead of being converted. A JSON `null` counts as absent,
// letting the binder fall back to the parameter's default.
func (c *JSON) decode(raw json.RawMessage, want cty.Type, ref string) (cty.Value, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return cty.NilVal, false, nil
	}
	if trimmed[0] == 'n' {
		// JSON `null`
		return cty.NilVal, false, nil
	}

	if want == cty.DynamicPseudoType {
		ty, err := ctyjson.ImpliedType(trimmed)
		if err != nil {
			return cty.NilVal, false, &DecodeError{Ref: ref, Want: want, Err: err}
		}
		want = ty
	} else if err := matchTokenKind(trimmed[0], want); err != nil {
		return cty.NilVal, false, &DecodeError{Ref: ref, Want: want, Err: err}
	}

	val, err := ctyjson.Unmarshal(trimmed, want)
	if err != nil {
		return cty.NilVal, false, &DecodeError{Ref: ref, Want: want, Err: err}
	}
	return val, true, nil
}

// matchTokenKind rejects JSON tokens whose lexical kind disagrees with the
// expected primitive before any conversion can paper over the mismatch.
func matchTokenKind(first byte, want cty.Type) error {
	switch want {
	case cty.Bool:
		if first != 't' && first != 'f' {
			return errors.New("expected a boolean literal")
		}
	case cty.Number:
		if first != '-' && (first < '0' || first > '9') {
			return errors.New("expected a number literal")
		}
	case cty.String:
		if first != '"' {
			return errors.New("expected a string literal")
		}
	default:
		return fmt.Errorf("unsupported wire type %s", want.FriendlyName())
	}
	return nil
}

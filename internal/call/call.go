// Package call defines the boundary between the binding core and the live
// per-request context it reads arguments from and writes its response into.
package call

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// DefaultReplyLimit is the response buffer capacity used when a transport
// does not configure its own bound.
const DefaultReplyLimit = 1024

// Context is the narrow view of one in-flight call. Lookups are synchronous
// reads from an already-buffered request and never block. A lookup returns
// the decoded value and true when the wire call supplies it, false when it
// does not, and an error when the value is present but not of the expected
// kind.
type Context interface {
	// Named resolves a wire value by parameter name.
	Named(name string, want cty.Type) (cty.Value, bool, error)

	// Positional resolves a wire value by zero-based position.
	Positional(index int, want cty.Type) (cty.Value, bool, error)

	// NamedKeys lists every name the wire call supplies, in a stable order.
	NamedKeys() []string

	// PositionalCount reports how many positional wire values the call carries.
	PositionalCount() int

	// Reply writes the serialized return value. The payload must fit the
	// context's response capacity; an over-length payload fails, it is
	// never truncated.
	Reply(payload []byte) error
}

// DecodeError reports a wire value that exists but cannot be read as the
// expected primitive kind.
type DecodeError struct {
	Ref  string // parameter name or "#<index>"
	Want cty.Type
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("argument %s: cannot decode as %s: %v", e.Ref, e.Want.FriendlyName(), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ResponseTooLargeError reports a serialized return value that exceeds the
// response buffer capacity.
type ResponseTooLargeError struct {
	Size  int
	Limit int
}

func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response of %d bytes exceeds the %d byte reply limit", e.Size, e.Limit)
}

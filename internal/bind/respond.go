package bind

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// marshalResult converts a handler's return value to its JSON wire form.
// Booleans, integers, floats, strings and nil all round-trip; handlers may
// also return a cty.Value directly for structured results.
func marshalResult(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	if cv, ok := v.(cty.Value); ok {
		if cv == cty.NilVal {
			return []byte("null"), nil
		}
		return ctyjson.Marshal(cv, cv.Type())
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return nil, fmt.Errorf("result of type %T is not serializable: %w", v, err)
	}
	cv, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return nil, fmt.Errorf("result of type %T is not serializable: %w", v, err)
	}
	return ctyjson.Marshal(cv, ty)
}

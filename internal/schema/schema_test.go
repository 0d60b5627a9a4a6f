package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func def(v cty.Value) *cty.Value { return &v }

func TestSignatureValidate(t *testing.T) {
	t.Parallel()

	t.Run("Success: full signature in stage order", func(t *testing.T) {
		t.Parallel()
		sig := Signature{Params: []Param{
			{Name: "a", Type: TypeInt, Kind: PositionalOnly},
			{Name: "b", Type: TypeString, Kind: PositionalOrKeyword},
			{Name: "c", Type: TypeFloat, Kind: PositionalOrKeyword, Default: def(cty.NumberFloatVal(1.5))},
			{Name: "rest", Kind: VarPositional},
			{Name: "flag", Type: TypeBool, Kind: KeywordOnly, Default: def(cty.True)},
			{Name: "extra", Kind: VarKeyword},
		}}
		require.NoError(t, sig.Validate())
	})

	t.Run("Success: untyped parameter is a valid build state", func(t *testing.T) {
		t.Parallel()
		sig := Signature{Params: []Param{
			{Name: "v", Type: TypeUnspecified, Kind: PositionalOrKeyword},
		}}
		require.NoError(t, sig.Validate())
	})

	t.Run("Failure: structural violations", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name        string
			sig         Signature
			errContains string
		}{
			{
				name: "empty parameter name",
				sig: Signature{Params: []Param{
					{Name: "", Type: TypeInt, Kind: PositionalOrKeyword},
				}},
				errContains: "empty name",
			},
			{
				name: "duplicate parameter name",
				sig: Signature{Params: []Param{
					{Name: "a", Type: TypeInt, Kind: PositionalOrKeyword},
					{Name: "a", Type: TypeInt, Kind: PositionalOrKeyword},
				}},
				errContains: "duplicate parameter name",
			},
			{
				name: "positional after keyword-only",
				sig: Signature{Params: []Param{
					{Name: "a", Type: TypeInt, Kind: KeywordOnly},
					{Name: "b", Type: TypeInt, Kind: PositionalOrKeyword},
				}},
				errContains: "cannot follow",
			},
			{
				name: "positional-only after positional-or-keyword",
				sig: Signature{Params: []Param{
					{Name: "a", Type: TypeInt, Kind: PositionalOrKeyword},
					{Name: "b", Type: TypeInt, Kind: PositionalOnly},
				}},
				errContains: "cannot follow",
			},
			{
				name: "two variadic-positional parameters",
				sig: Signature{Params: []Param{
					{Name: "a", Kind: VarPositional},
					{Name: "b", Kind: VarPositional},
				}},
				errContains: "variadic-positional",
			},
			{
				name: "two variadic-keyword parameters",
				sig: Signature{Params: []Param{
					{Name: "a", Kind: VarKeyword},
					{Name: "b", Kind: VarKeyword},
				}},
				errContains: "variadic-keyword",
			},
			{
				name: "default on a variadic parameter",
				sig: Signature{Params: []Param{
					{Name: "rest", Kind: VarPositional, Default: def(cty.NumberIntVal(1))},
				}},
				errContains: "cannot carry a default",
			},
			{
				name: "non-default positional after a defaulted one",
				sig: Signature{Params: []Param{
					{Name: "a", Type: TypeInt, Kind: PositionalOrKeyword, Default: def(cty.NumberIntVal(1))},
					{Name: "b", Type: TypeInt, Kind: PositionalOrKeyword},
				}},
				errContains: "follows a defaulted one",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := tc.sig.Validate()
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errContains)
			})
		}
	})

	t.Run("Keyword-only defaults need not be trailing", func(t *testing.T) {
		t.Parallel()
		sig := Signature{Params: []Param{
			{Name: "a", Type: TypeInt, Kind: KeywordOnly, Default: def(cty.NumberIntVal(1))},
			{Name: "b", Type: TypeInt, Kind: KeywordOnly},
		}}
		require.NoError(t, sig.Validate())
	})
}

func TestKindPredicates(t *testing.T) {
	t.Parallel()

	require.True(t, PositionalOnly.AllowsPosition())
	require.False(t, PositionalOnly.AllowsName())
	require.True(t, PositionalOrKeyword.AllowsPosition())
	require.True(t, PositionalOrKeyword.AllowsName())
	require.False(t, KeywordOnly.AllowsPosition())
	require.True(t, KeywordOnly.AllowsName())
	require.True(t, VarPositional.AllowsPosition())
	require.False(t, VarPositional.AllowsName())
	require.True(t, VarKeyword.AllowsName())
	require.False(t, VarKeyword.AllowsPosition())
	require.True(t, VarPositional.Variadic())
	require.True(t, VarKeyword.Variadic())
	require.False(t, KeywordOnly.Variadic())
}

func TestTypeCty(t *testing.T) {
	t.Parallel()

	require.Equal(t, cty.Bool, TypeBool.CtyType())
	require.Equal(t, cty.Number, TypeInt.CtyType())
	require.Equal(t, cty.Number, TypeFloat.CtyType())
	require.Equal(t, cty.String, TypeString.CtyType())
	require.Equal(t, cty.NilType, TypeUnspecified.CtyType())
}

package vm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuePredicates(t *testing.T) {
	preds := map[string]func(Value) bool{
		"undefined":   Value.IsUndefined,
		"null":        Value.IsNull,
		"nullish":     Value.IsNullish,
		"boolean":     Value.IsBoolean,
		"number":      Value.IsNumber,
		"int32":       Value.IsInt32,
		"string":      Value.IsString,
		"smallstring": Value.IsSmallString,
		"symbol":      Value.IsSymbol,
		"bigint":      Value.IsBigInt,
		"object":      Value.IsObject,
		"function":    Value.IsFunction,
		"array":       Value.IsArray,
		"date":        Value.IsDate,
		"regexp":      Value.IsRegExp,
		"error":       Value.IsError,
		"typedarray":  Value.IsTypedArray,
		"primitive":   Value.IsPrimitive,
	}

	obj := &Object{Shape: 1}
	cases := []struct {
		name string
		v    Value
		want []string
	}{
		{"undefined", Undefined, []string{"undefined", "nullish", "primitive"}},
		{"null", Null, []string{"null", "nullish", "primitive"}},
		{"true", True, []string{"boolean", "primitive"}},
		{"false", False, []string{"boolean", "primitive"}},
		{"double", NumberValue(3.25), []string{"number", "primitive"}},
		{"nan", NumberValue(math.NaN()), []string{"number", "primitive"}},
		{"neg inf", NumberValue(math.Inf(-1)), []string{"number", "primitive"}},
		{"int32", IntegerValue(-7), []string{"number", "int32", "primitive"}},
		{"small string", NewString("hi"), []string{"string", "smallstring", "primitive"}},
		{"heap string", NewString("long enough"), []string{"string", "primitive"}},
		{"symbol", NewSymbol("s"), []string{"symbol", "primitive"}},
		{"bigint", NewBigInt(big.NewInt(1)), []string{"bigint", "primitive"}},
		{"object", NewObject(obj), []string{"object"}},
		{"function", NewFunction(obj), []string{"object", "function"}},
		{"array", NewArray(obj), []string{"object", "array"}},
		{"date", NewDate(obj), []string{"object", "date"}},
		{"regexp", NewRegExp(obj), []string{"object", "regexp"}},
		{"error", NewError(obj), []string{"object", "error"}},
		{"typed array", NewTypedArray(obj), []string{"object", "typedarray"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := make(map[string]bool, len(tc.want))
			for _, p := range tc.want {
				want[p] = true
			}
			for name, pred := range preds {
				assert.Equal(t, want[name], pred(tc.v), "predicate %s", name)
			}
		})
	}
}

func TestNumberEncoding(t *testing.T) {
	require.Equal(t, math.Float64bits(1.5), NumberValue(1.5).Bits())
	require.Equal(t, 1.5, NumberValue(1.5).AsFloat())

	// All NaN inputs canonicalize to the single reserved pattern.
	require.Equal(t, CanonicalNaN, NumberValue(math.NaN()).Bits())
	require.Equal(t, CanonicalNaN, NaN.Bits())
	negNaN := math.Float64frombits(0xFFF8000000000001)
	require.Equal(t, CanonicalNaN, NumberValue(negNaN).Bits())

	// -Infinity sits at the box base with a zero tag field and stays a
	// plain double.
	require.Equal(t, math.Inf(-1), NumberValue(math.Inf(-1)).AsFloat())

	require.Equal(t, int32(42), IntegerValue(42).AsInt32())
	require.Equal(t, uint64(42), IntegerValue(42).Payload())
	require.Equal(t, int32(-1), IntegerValue(-1).AsInt32())
	require.Equal(t, int32(math.MinInt32), IntegerValue(math.MinInt32).AsInt32())
}

func TestStringEncoding(t *testing.T) {
	for _, s := range []string{"", "a", "ab", "abcde"} {
		v := NewString(s)
		require.True(t, v.IsSmallString(), "%q should be inline", s)
		require.Equal(t, s, v.AsString())
	}

	long := NewString("abcdef")
	require.True(t, long.IsString())
	require.False(t, long.IsSmallString())
	require.Equal(t, "abcdef", long.AsString())

	// Forcing a short string onto the heap keeps content intact.
	forced := NewHeapString("ab")
	require.False(t, forced.IsSmallString())
	require.Equal(t, "ab", forced.AsString())
}

func TestHeapHandlesAreDistinct(t *testing.T) {
	a := NewString("seven chars")
	b := NewString("seven chars")
	require.NotEqual(t, a.Bits(), b.Bits())

	o1 := NewObject(&Object{})
	o2 := NewObject(&Object{})
	require.NotEqual(t, o1.Bits(), o2.Bits())
}

func TestAccessors(t *testing.T) {
	require.True(t, True.AsBoolean())
	require.False(t, False.AsBoolean())

	sym := NewSymbol("desc")
	require.Equal(t, "desc", sym.AsSymbol())

	n := big.NewInt(1 << 40)
	require.Zero(t, NewBigInt(n).AsBigInt().Cmp(n))

	obj := &Object{Shape: 99}
	require.Same(t, obj, NewArray(obj).AsObject())
}

func TestAccessorPanicsOnWrongTag(t *testing.T) {
	require.Panics(t, func() { Undefined.AsInt32() })
	require.Panics(t, func() { NumberValue(1).AsString() })
	require.Panics(t, func() { NewString("x").AsBoolean() })
	require.Panics(t, func() { IntegerValue(1).AsFloat() })
	require.Panics(t, func() { Null.AsObject() })
	require.Panics(t, func() { True.AsBigInt() })
	require.Panics(t, func() { NewString("x").AsSymbol() })
}

func TestTypeOf(t *testing.T) {
	obj := &Object{}
	assert.Equal(t, "undefined", Undefined.TypeOf())
	assert.Equal(t, "object", Null.TypeOf())
	assert.Equal(t, "boolean", True.TypeOf())
	assert.Equal(t, "number", NumberValue(0.5).TypeOf())
	assert.Equal(t, "number", IntegerValue(5).TypeOf())
	assert.Equal(t, "string", NewString("x").TypeOf())
	assert.Equal(t, "symbol", NewSymbol("x").TypeOf())
	assert.Equal(t, "bigint", NewBigInt(big.NewInt(0)).TypeOf())
	assert.Equal(t, "function", NewFunction(obj).TypeOf())
	assert.Equal(t, "object", NewArray(obj).TypeOf())
}

func TestTypeName(t *testing.T) {
	obj := &Object{}
	assert.Equal(t, "null", Null.TypeName())
	assert.Equal(t, "array", NewArray(obj).TypeName())
	assert.Equal(t, "date", NewDate(obj).TypeName())
	assert.Equal(t, "regexp", NewRegExp(obj).TypeName())
	assert.Equal(t, "error", NewError(obj).TypeName())
	assert.Equal(t, "typed array", NewTypedArray(obj).TypeName())
	assert.Equal(t, "object", NewObject(obj).TypeName())
}

func TestDiagnosticString(t *testing.T) {
	assert.Equal(t, "undefined", Undefined.String())
	assert.Equal(t, "true", True.String())
	assert.Equal(t, "-3", IntegerValue(-3).String())
	assert.Equal(t, "1.5", NumberValue(1.5).String())
	assert.Equal(t, `"hi"`, NewString("hi").String())
	assert.Equal(t, "Symbol(tag)", NewSymbol("tag").String())
	assert.Equal(t, "42n", NewBigInt(big.NewInt(42)).String())
	assert.Equal(t, "[array]", NewArray(&Object{}).String())
}

package vm

import (
	"fmt"
	"math"
)

// Coercer performs the non-fast-path abstract operations: string
// parsing and object-to-primitive coercion. The surrounding engine
// supplies one; the conversions below consult it exactly once, only
// for tags the fast path cannot handle, and never mutate the value.
type Coercer interface {
	ToNumber(v Value) (float64, error)
}

// TypeError is the only recoverable error this layer produces. It maps
// onto the engine's exception mechanism and must not be swallowed.
type TypeError struct {
	Op  string
	Val Value
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("TypeError: cannot convert %s to %s", e.Val.TypeName(), e.Op)
}

// ToBoolean applies the ECMAScript ToBoolean truth table. Total; every
// tag has a fast path.
func (v Value) ToBoolean() bool {
	if v.IsBoolean() {
		return v.bits&PayloadMask != 0
	}
	if !v.isBoxed() {
		f := math.Float64frombits(v.bits)
		return f != 0 && f == f
	}
	switch v.bits & typeMask {
	case tagInt32:
		return uint32(v.bits) != 0
	case tagSmallString:
		return v.bits>>smallStringLenShift&0xF != 0
	case tagUndefined, tagNull:
		return false
	}
	// Every remaining tag (heap string, symbol, bigint, object) is
	// truthy on the fast path, even a heap string with empty content.
	return true
}

// ToNumber converts on the fast path where the tag permits and defers
// the rest to the coercer.
func (v Value) ToNumber(c Coercer) (float64, error) {
	if !v.isBoxed() {
		return math.Float64frombits(v.bits), nil
	}
	switch v.bits & typeMask {
	case tagInt32:
		return float64(int32(uint32(v.bits))), nil
	case tagUndefined:
		return math.NaN(), nil
	case tagNull:
		return 0, nil
	case tagBoolean:
		if v.bits&PayloadMask != 0 {
			return 1, nil
		}
		return 0, nil
	}
	if c == nil {
		return 0, &TypeError{Op: "number", Val: v}
	}
	return c.ToNumber(v)
}

// ToInt32 applies ToNumber-then-ToInt32: truncate toward zero, reduce
// modulo 2^32, reinterpret as signed. Zero, NaN and infinities map to 0.
func (v Value) ToInt32(c Coercer) (int32, error) {
	if v.IsInt32() {
		return int32(uint32(v.bits)), nil
	}
	f, err := v.ToNumber(c)
	if err != nil {
		return 0, err
	}
	return int32(modulo32(f)), nil
}

// ToUint32 is ToInt32 without the final sign reinterpretation.
func (v Value) ToUint32(c Coercer) (uint32, error) {
	if v.IsInt32() {
		return uint32(v.bits), nil
	}
	f, err := v.ToNumber(c)
	if err != nil {
		return 0, err
	}
	return modulo32(f), nil
}

// modulo32 reduces a double into the 32-bit ring.
func modulo32(f float64) uint32 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	d := math.Mod(math.Trunc(f), 4294967296.0)
	if d < 0 {
		d += 4294967296.0
	}
	return uint32(d)
}

// StrictEquals implements the === comparison.
//
// Identical words with identical referents are equal, except the
// canonical NaN (NaN !== NaN); constructors canonicalize NaN so no
// other NaN pattern can reach the fast accept. Numbers compare under
// IEEE rules across the int32/double split, so +0 === -0. Strings
// compare by content across the inline/heap representation split.
// Objects compare by reference identity, never structurally.
func (v Value) StrictEquals(other Value) bool {
	if v.bits == other.bits && v.ref == other.ref {
		return v.bits != CanonicalNaN
	}

	if v.IsNumber() && other.IsNumber() {
		return v.numeric() == other.numeric()
	}

	ta, tb := v.bits&typeMask, other.bits&typeMask
	if ta != tb {
		// The two string representations never share a bit pattern;
		// equality is by content.
		if (ta == tagSmallString && tb == tagString) ||
			(ta == tagString && tb == tagSmallString) {
			return v.AsString() == other.AsString()
		}
		return false
	}

	switch ta {
	case tagString:
		return v.AsString() == other.AsString()
	case tagSmallString:
		// Length and bytes live in the word; unequal bits, unequal strings.
		return false
	case tagSymbol:
		return v.ref == other.ref
	case tagBigInt:
		return v.AsBigInt().Cmp(other.AsBigInt()) == 0
	}
	if v.IsObject() {
		return v.ref == other.ref
	}
	return false
}

func (v Value) numeric() float64 {
	if v.IsInt32() {
		return float64(int32(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

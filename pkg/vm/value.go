package vm

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"sync/atomic"
	"unsafe"
)

// Value is the 64-bit NaN-boxed representation used by the baseline tier.
//
// Every bit pattern outside the boxed region is an IEEE-754 double. The
// boxed region is the set of words whose sign and exponent bits are all
// ones (nanBase) and whose tag field is nonzero. The tag field occupies
// bits 51..44 and the payload the low 44 bits:
//
//	63            52 51       44 43                                0
//	[ sign+exponent ][   tag    ][            payload              ]
//
// Object tags set the object base bit and OR in subtype bits, so IsArray
// and friends are inclusive masked compares rather than equality tests.
// Every NaN produced by a constructor is canonicalized to CanonicalNaN;
// without that, negative quiet NaNs would alias the boxed region.
//
// A Value holding a heap referent (string, symbol, bigint, object) is a
// non-owning reference: the payload is a 44-bit handle and the referent
// pointer rides alongside the word so the collector keeps it alive.
// Copying a Value never allocates or frees.
type Value struct {
	bits uint64
	ref  unsafe.Pointer
}

const (
	nanBase      uint64 = 0xFFF0000000000000 // sign bit + all-ones exponent
	tagFieldMask uint64 = 0x000FF00000000000 // bits 51..44
	tagShift            = 44

	// PayloadMask extracts the low 44 payload bits of a boxed word.
	PayloadMask uint64 = 0x00000FFFFFFFFFFF

	// typeMask is the region every type predicate compares under.
	typeMask = nanBase | tagFieldMask

	// CanonicalNaN is the only NaN bit pattern constructors produce.
	CanonicalNaN uint64 = 0x7FF8000000000000
)

// Full-width tag words: box base plus the tag field value.
const (
	tagUndefined   = nanBase | 0x01<<tagShift
	tagNull        = nanBase | 0x02<<tagShift
	tagBoolean     = nanBase | 0x03<<tagShift
	tagInt32       = nanBase | 0x04<<tagShift
	tagString      = nanBase | 0x05<<tagShift
	tagSmallString = nanBase | 0x06<<tagShift
	tagSymbol      = nanBase | 0x07<<tagShift
	tagBigInt      = nanBase | 0x08<<tagShift

	// tagObject is a bitmask base; subtype bits are ORed in below.
	tagObject = nanBase | 0x80<<tagShift

	subFunction   = uint64(0x01) << tagShift
	subArray      = uint64(0x02) << tagShift
	subDate       = uint64(0x04) << tagShift
	subRegExp     = uint64(0x08) << tagShift
	subError      = uint64(0x10) << tagShift
	subTypedArray = uint64(0x20) << tagShift
)

// MaxSmallStringLen is the longest string stored inline in the word:
// a 4-bit length at bits 43..40 and up to five bytes at bits 39..0.
const MaxSmallStringLen = 5

const smallStringLenShift = 40

// StringObject is the heap referent of a non-inline string value.
type StringObject struct {
	value string
}

// SymbolObject is the heap referent of a symbol value. Two symbols are
// identical only if they share a referent, regardless of description.
type SymbolObject struct {
	desc string
}

// BigIntObject is the heap referent of a bigint value.
type BigIntObject struct {
	value *big.Int
}

// Object is the header the external object model embeds in its own
// structures. The core never inspects object layout; it only carries
// the reference and the shape fingerprint the model assigns.
type Object struct {
	// Shape identifies the object's property layout. The object model
	// owns it; inline-cache keys are derived from it.
	Shape uint64
}

// Singleton immediates.
var (
	Undefined = Value{bits: tagUndefined}
	Null      = Value{bits: tagNull}
	True      = Value{bits: tagBoolean | 1}
	False     = Value{bits: tagBoolean}
	NaN       = Value{bits: CanonicalNaN}
)

// nextHandle feeds the 44-bit handles carried by heap-referent values.
// Distinct referents get distinct payloads, which keeps the
// bit-identical fast path of StrictEquals sound.
var nextHandle atomic.Uint64

func newHandle() uint64 {
	return nextHandle.Add(1) & PayloadMask
}

func boxHeap(tag uint64, p unsafe.Pointer) Value {
	return Value{bits: tag | newHandle(), ref: p}
}

// NumberValue boxes a float64. NaN inputs canonicalize.
func NumberValue(value float64) Value {
	if value != value {
		return NaN
	}
	return Value{bits: math.Float64bits(value)}
}

// IntegerValue boxes an int32 without going through a double.
func IntegerValue(value int32) Value {
	return Value{bits: tagInt32 | uint64(uint32(value))}
}

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

// NewString boxes a string, inline when it fits MaxSmallStringLen.
func NewString(value string) Value {
	if len(value) <= MaxSmallStringLen {
		bits := tagSmallString | uint64(len(value))<<smallStringLenShift
		for i := 0; i < len(value); i++ {
			bits |= uint64(value[i]) << (8 * i)
		}
		return Value{bits: bits}
	}
	return boxHeap(tagString, unsafe.Pointer(&StringObject{value: value}))
}

// NewHeapString boxes a string on the heap even when it would fit
// inline. The object model uses this for interned strings.
func NewHeapString(value string) Value {
	return boxHeap(tagString, unsafe.Pointer(&StringObject{value: value}))
}

func NewSymbol(desc string) Value {
	return boxHeap(tagSymbol, unsafe.Pointer(&SymbolObject{desc: desc}))
}

func NewBigInt(value *big.Int) Value {
	return boxHeap(tagBigInt, unsafe.Pointer(&BigIntObject{value: value}))
}

func NewObject(obj *Object) Value {
	return boxHeap(tagObject, unsafe.Pointer(obj))
}

func NewFunction(obj *Object) Value {
	return boxHeap(tagObject|subFunction, unsafe.Pointer(obj))
}

func NewArray(obj *Object) Value {
	return boxHeap(tagObject|subArray, unsafe.Pointer(obj))
}

func NewDate(obj *Object) Value {
	return boxHeap(tagObject|subDate, unsafe.Pointer(obj))
}

func NewRegExp(obj *Object) Value {
	return boxHeap(tagObject|subRegExp, unsafe.Pointer(obj))
}

func NewError(obj *Object) Value {
	return boxHeap(tagObject|subError, unsafe.Pointer(obj))
}

func NewTypedArray(obj *Object) Value {
	return boxHeap(tagObject|subTypedArray, unsafe.Pointer(obj))
}

// isBoxed reports whether the word is in the reserved tagged region.
func (v Value) isBoxed() bool {
	return v.bits&nanBase == nanBase && v.bits&tagFieldMask != 0
}

func (v Value) IsUndefined() bool {
	return v.bits&typeMask == tagUndefined
}

func (v Value) IsNull() bool {
	return v.bits&typeMask == tagNull
}

func (v Value) IsNullish() bool {
	tag := v.bits & typeMask
	return tag == tagUndefined || tag == tagNull
}

func (v Value) IsBoolean() bool {
	return v.bits&typeMask == tagBoolean
}

// IsNumber is true for doubles and inline int32s; the overlap with
// IsInt32 is deliberate.
func (v Value) IsNumber() bool {
	return !v.isBoxed() || v.bits&typeMask == tagInt32
}

func (v Value) IsInt32() bool {
	return v.bits&typeMask == tagInt32
}

func (v Value) IsString() bool {
	tag := v.bits & typeMask
	return tag == tagString || tag == tagSmallString
}

func (v Value) IsSmallString() bool {
	return v.bits&typeMask == tagSmallString
}

func (v Value) IsSymbol() bool {
	return v.bits&typeMask == tagSymbol
}

func (v Value) IsBigInt() bool {
	return v.bits&typeMask == tagBigInt
}

func (v Value) IsObject() bool {
	return v.bits&tagObject == tagObject
}

func (v Value) IsFunction() bool {
	return v.bits&(tagObject|subFunction) == tagObject|subFunction
}

func (v Value) IsArray() bool {
	return v.bits&(tagObject|subArray) == tagObject|subArray
}

func (v Value) IsDate() bool {
	return v.bits&(tagObject|subDate) == tagObject|subDate
}

func (v Value) IsRegExp() bool {
	return v.bits&(tagObject|subRegExp) == tagObject|subRegExp
}

func (v Value) IsError() bool {
	return v.bits&(tagObject|subError) == tagObject|subError
}

func (v Value) IsTypedArray() bool {
	return v.bits&(tagObject|subTypedArray) == tagObject|subTypedArray
}

func (v Value) IsPrimitive() bool {
	return !v.IsObject()
}

// Bits returns the raw word. This is the layout contract consumed by
// generated code; the reserved region is documented on Value.
func (v Value) Bits() uint64 {
	return v.bits
}

// Payload returns the low 44 bits of the word.
func (v Value) Payload() uint64 {
	return v.bits & PayloadMask
}

func (v Value) AsBoolean() bool {
	if !v.IsBoolean() {
		panic("value is not a boolean")
	}
	return v.bits&PayloadMask != 0
}

func (v Value) AsInt32() int32 {
	if !v.IsInt32() {
		panic("value is not an int32")
	}
	return int32(uint32(v.bits))
}

func (v Value) AsFloat() float64 {
	if v.isBoxed() {
		panic("value is not a float")
	}
	return math.Float64frombits(v.bits)
}

func (v Value) AsString() string {
	switch v.bits & typeMask {
	case tagSmallString:
		return v.smallString()
	case tagString:
		return (*StringObject)(v.ref).value
	}
	panic("value is not a string")
}

func (v Value) smallString() string {
	n := int(v.bits>>smallStringLenShift) & 0xF
	var buf [MaxSmallStringLen]byte
	for i := 0; i < n; i++ {
		buf[i] = byte(v.bits >> (8 * i))
	}
	return string(buf[:n])
}

func (v Value) AsSymbol() string {
	if !v.IsSymbol() {
		panic("value is not a symbol")
	}
	return (*SymbolObject)(v.ref).desc
}

func (v Value) AsBigInt() *big.Int {
	if !v.IsBigInt() {
		panic("value is not a bigint")
	}
	return (*BigIntObject)(v.ref).value
}

func (v Value) AsObject() *Object {
	if !v.IsObject() {
		panic("value is not an object")
	}
	return (*Object)(v.ref)
}

// TypeOf returns the typeof-style name for the value.
func (v Value) TypeOf() string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "object" // typeof null
	case v.IsBoolean():
		return "boolean"
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsSymbol():
		return "symbol"
	case v.IsBigInt():
		return "bigint"
	case v.IsFunction():
		return "function"
	default:
		return "object"
	}
}

// TypeName returns a diagnostic name distinguishing object subtypes.
func (v Value) TypeName() string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		return "boolean"
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsSymbol():
		return "symbol"
	case v.IsBigInt():
		return "bigint"
	case v.IsFunction():
		return "function"
	case v.IsArray():
		return "array"
	case v.IsDate():
		return "date"
	case v.IsRegExp():
		return "regexp"
	case v.IsError():
		return "error"
	case v.IsTypedArray():
		return "typed array"
	case v.IsObject():
		return "object"
	default:
		return fmt.Sprintf("<unknown bits: %#x>", v.bits)
	}
}

// String renders the value for diagnostics; it is not JS ToString.
func (v Value) String() string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case v.IsInt32():
		return strconv.FormatInt(int64(v.AsInt32()), 10)
	case v.IsNumber():
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case v.IsString():
		return strconv.Quote(v.AsString())
	case v.IsSymbol():
		return "Symbol(" + v.AsSymbol() + ")"
	case v.IsBigInt():
		return v.AsBigInt().String() + "n"
	default:
		return "[" + v.TypeName() + "]"
	}
}

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotTableGetSet(t *testing.T) {
	tbl := NewSlotTable(2)
	require.Equal(t, 2, tbl.Size())

	v, ok := tbl.Get(0)
	require.True(t, ok)
	require.True(t, v.IsUndefined())

	tbl.Set(1, IntegerValue(7))
	v, ok = tbl.Get(1)
	require.True(t, ok)
	require.Equal(t, int32(7), v.AsInt32())

	// Out-of-range reads degrade to Undefined instead of panicking.
	v, ok = tbl.Get(5)
	require.False(t, ok)
	require.True(t, v.IsUndefined())
	_, ok = tbl.Get(-1)
	require.False(t, ok)
}

func TestSlotTableSetGrows(t *testing.T) {
	tbl := NewSlotTable(0)
	tbl.Set(3, NewString("x"))
	require.Equal(t, 4, tbl.Size())

	v, ok := tbl.Get(2)
	require.True(t, ok)
	require.True(t, v.IsUndefined())
	v, _ = tbl.Get(3)
	require.Equal(t, "x", v.AsString())
}

func TestSlotTableResize(t *testing.T) {
	tbl := NewSlotTable(3)
	tbl.Set(2, True)

	tbl.Resize(5)
	v, ok := tbl.Get(4)
	require.True(t, ok)
	require.True(t, v.IsUndefined())
	v, _ = tbl.Get(2)
	require.True(t, v.AsBoolean())

	tbl.Resize(1)
	require.Equal(t, 1, tbl.Size())
	_, ok = tbl.Get(2)
	require.False(t, ok)
}

func TestSlotTableFlags(t *testing.T) {
	tbl := NewSlotTable(2)
	require.Zero(t, tbl.Flags(0))

	tbl.SetFlags(0, SlotProtected|SlotTemporary)
	require.True(t, tbl.HasFlag(0, SlotProtected))
	require.True(t, tbl.HasFlag(0, SlotTemporary))
	require.False(t, tbl.HasFlag(0, SlotObservedPolymorphic))

	// Out-of-range flag access is inert.
	require.Zero(t, tbl.Flags(9))
	tbl.SetFlags(9, SlotProtected)
	require.False(t, tbl.HasFlag(9, SlotProtected))
}

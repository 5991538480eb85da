package vm

// SlotFlags annotate a storage slot for the cache layer.
type SlotFlags uint32

const (
	// SlotObservedPolymorphic marks a slot whose reads have seen more
	// than one shape at the same site.
	SlotObservedPolymorphic SlotFlags = 1 << iota
	// SlotProtected slots require a guard check on cached access.
	SlotProtected
	// SlotTemporary slots are dropped on the next table resize.
	SlotTemporary
)

// Slot is one addressable storage cell: a value plus cache-relevant
// metadata. Slot indexes are what inline caches memoize as entry values.
type Slot struct {
	Value Value
	Flags SlotFlags
}

// SlotTable is a dense, index-addressed value store. Object property
// backing stores and register files use it; the indexes it hands out
// are stable for the table's lifetime, which is what makes them safe
// to embed in cache entries.
type SlotTable struct {
	slots []Slot
}

func NewSlotTable(size int) *SlotTable {
	if size < 0 {
		size = 0
	}
	slots := make([]Slot, size)
	for i := range slots {
		slots[i].Value = Undefined
	}
	return &SlotTable{slots: slots}
}

func (t *SlotTable) Size() int {
	return len(t.slots)
}

// Resize grows or shrinks the table. Growing zero-fills with Undefined;
// shrinking discards the tail.
func (t *SlotTable) Resize(size int) {
	if size < 0 {
		size = 0
	}
	if size <= len(t.slots) {
		t.slots = t.slots[:size]
		return
	}
	grown := make([]Slot, size)
	copy(grown, t.slots)
	for i := len(t.slots); i < size; i++ {
		grown[i].Value = Undefined
	}
	t.slots = grown
}

// Get reads slot i. Out-of-range reads yield Undefined and false rather
// than panicking, matching how stale cached indexes must degrade.
func (t *SlotTable) Get(i int) (Value, bool) {
	if i < 0 || i >= len(t.slots) {
		return Undefined, false
	}
	return t.slots[i].Value, true
}

// Set writes slot i, growing the table as needed.
func (t *SlotTable) Set(i int, v Value) {
	if i < 0 {
		return
	}
	if i >= len(t.slots) {
		t.Resize(i + 1)
	}
	t.slots[i].Value = v
}

func (t *SlotTable) Flags(i int) SlotFlags {
	if i < 0 || i >= len(t.slots) {
		return 0
	}
	return t.slots[i].Flags
}

func (t *SlotTable) SetFlags(i int, flags SlotFlags) {
	if i < 0 || i >= len(t.slots) {
		return
	}
	t.slots[i].Flags = flags
}

func (t *SlotTable) HasFlag(i int, flag SlotFlags) bool {
	return t.Flags(i)&flag != 0
}

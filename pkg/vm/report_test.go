package vm

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func reportFixture() *CacheManager {
	m := NewCacheManager(DefaultConfig())
	m.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	getprop := m.GetOrCreateCache("getprop:Point.x", ICProperty, 2)
	getprop.Add(10, 100, 0)
	getprop.Add(20, 200, 0)
	getprop.Lookup(10)
	getprop.Lookup(10)
	getprop.Lookup(30)
	getprop.Invalidate(20)

	call := m.GetOrCreateCache("call:Point.toString", ICMethod, 0)
	call.Add(11, 111, 0)
	call.Lookup(11)

	m.GetOrCreateCache("binop:add", ICBinaryOp, 0).Lookup(99)

	return m
}

func TestGenerateReport(t *testing.T) {
	g := goldie.New(t)
	m := reportFixture()

	g.Assert(t, "report_brief", []byte(m.GenerateReport(false)))
	g.Assert(t, "report_detailed", []byte(m.GenerateReport(true)))
}

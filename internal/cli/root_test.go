package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/pkg/vm"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestBenchPrintsReport(t *testing.T) {
	out := runCommand(t, "bench", "--sites", "5", "--ops", "500", "--seed", "7")
	assert.Contains(t, out, "Inline Cache Performance Report")
	assert.Contains(t, out, "Caches: 5/1000")
	assert.Contains(t, out, "Lookups: 500")
	assert.NotContains(t, out, "Cache details:")
}

func TestBenchDetailedReport(t *testing.T) {
	out := runCommand(t, "bench", "--sites", "3", "--ops", "100", "--detailed")
	assert.Contains(t, out, "Cache details:")
	assert.Contains(t, out, "site-00:property:")
}

func TestBenchIsDeterministicForSeed(t *testing.T) {
	a := runCommand(t, "bench", "--sites", "4", "--ops", "300", "--seed", "11")
	b := runCommand(t, "bench", "--sites", "4", "--ops", "300", "--seed", "11")

	// Strip the timestamp line; everything else must match.
	ts := regexp.MustCompile(`(?m)^  Generated: .*$`)
	assert.Equal(t, ts.ReplaceAllString(a, ""), ts.ReplaceAllString(b, ""))
}

func TestBenchRecordAndListSnapshots(t *testing.T) {
	db := filepath.Join(t.TempDir(), "kestrel.db")

	out := runCommand(t, "bench", "--db", db, "--ops", "200", "--record", "--label", "ci run")
	require.Contains(t, out, "recorded snapshot ")

	list := runCommand(t, "snapshots", "--db", db)
	assert.Contains(t, list, "ci run")
	assert.Contains(t, list, "lookups=200")
}

func TestSnapshotsEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "kestrel.db")
	out := runCommand(t, "snapshots", "--db", db)
	assert.Contains(t, out, "no snapshots recorded")
}

func TestBenchRespectsConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "kestrel.yaml")
	require.NoError(t, writeFile(cfgPath, "enabled: false\n"))

	out := runCommand(t, "bench", "--config", cfgPath, "--ops", "100")
	assert.Contains(t, out, "Enabled: false")
	assert.Contains(t, out, "Hits: 0 (0.00%)")
}

func TestTypeKeyGroupsByDispatchType(t *testing.T) {
	require.Equal(t, typeKey(vm.IntegerValue(1)), typeKey(vm.IntegerValue(99)))
	require.Equal(t, typeKey(vm.NewString("a")), typeKey(vm.NewString("a heap resident string")))
	require.NotEqual(t, typeKey(vm.IntegerValue(1)), typeKey(vm.NumberValue(0.5)))

	shape := &vm.Object{Shape: 7}
	other := &vm.Object{Shape: 8}
	require.Equal(t, typeKey(vm.NewObject(shape)), typeKey(vm.NewObject(shape)))
	require.NotEqual(t, typeKey(vm.NewObject(shape)), typeKey(vm.NewObject(other)))
}

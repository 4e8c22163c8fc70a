package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, ch <-chan []Event, timeout time.Duration) []Event {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestDebouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("main.rs", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	assert.Equal(t, []Event{{Path: "main.rs", Op: OpWrite}}, batch)
}

func TestDebouncer_CollapsesSamePath(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("main.rs", OpCreate)
	d.Add("main.rs", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, OpWrite, batch[0].Op)
}

func TestDebouncer_BatchIsSortedByPath(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("util.rs", OpCreate)
	d.Add("main.rs", OpWrite)
	d.Add("README.rs", OpRemove)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	assert.Equal(t, []Event{
		{Path: "README.rs", Op: OpRemove},
		{Path: "main.rs", Op: OpWrite},
		{Path: "util.rs", Op: OpCreate},
	}, batch)
}

func TestDebouncer_TimerReset(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("main.rs", OpWrite)
	time.Sleep(testInterval / 2)
	d.Add("util.rs", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	assert.Len(t, batch, 2)
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("main.rs", OpWrite)
	d.Stop()

	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch after Stop: %v", batch)
	case <-time.After(3 * testInterval):
	}
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(42).String())
}

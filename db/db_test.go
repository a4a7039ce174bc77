package db

import (
	"fmt"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	mgr.InitWriteQueue(100, 50*time.Millisecond)
	t.Cleanup(mgr.Close)
	return mgr
}

func TestEnqueueFlushGet(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("v1_balance_tok_alice", "1000")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	val, err := mgr.Get("v1_balance_tok_alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "1000" {
		t.Errorf("Get returned %q, want %q", val, "1000")
	}

	_, err = mgr.Get("missing")
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestEnqueueDelete(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("k", "v")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	mgr.EnqueueDel("k")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	if _, err := mgr.Get("k"); !IsNotFound(err) {
		t.Errorf("deleted key still readable, err=%v", err)
	}
}

func TestGetKVs(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("a", "1")
	mgr.EnqueueSet("b", "2")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	got, err := mgr.GetKVs([]string{"a", "b", "missing", ""})
	if err != nil {
		t.Fatalf("GetKVs failed: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("GetKVs returned %v", got)
	}
}

func TestScanPrefix(t *testing.T) {
	mgr := newTestManager(t)

	for i := 0; i < 5; i++ {
		mgr.EnqueueSet(fmt.Sprintf("v1_event_%020d", i), fmt.Sprintf("e%d", i))
	}
	mgr.EnqueueSet("v1_receipt_x", "r")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	got, err := mgr.Scan("v1_event_")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("Scan returned %d entries, want 5", len(got))
	}
	if _, ok := got["v1_receipt_x"]; ok {
		t.Error("Scan leaked a key outside the prefix")
	}
}

func TestScanOrdered(t *testing.T) {
	mgr := newTestManager(t)

	for i := 0; i < 10; i++ {
		mgr.EnqueueSet(fmt.Sprintf("v1_event_%020d", i), fmt.Sprintf("e%d", i))
	}
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	// 正向：最早的 3 条
	entries, err := mgr.ScanOrdered("v1_event_", 3, false)
	if err != nil {
		t.Fatalf("ScanOrdered failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("e%d", i)
		if string(e.Value) != want {
			t.Errorf("entry %d = %q, want %q", i, e.Value, want)
		}
	}

	// 反向：最新的 3 条
	entries, err = mgr.ScanOrdered("v1_event_", 3, true)
	if err != nil {
		t.Fatalf("ScanOrdered reverse failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("e%d", 9-i)
		if string(e.Value) != want {
			t.Errorf("reverse entry %d = %q, want %q", i, e.Value, want)
		}
	}

	// limit <= 0 返回全部
	entries, err = mgr.ScanOrdered("v1_event_", 0, false)
	if err != nil {
		t.Fatalf("ScanOrdered unlimited failed: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("got %d entries, want 10", len(entries))
	}
}

func TestNextIndex(t *testing.T) {
	mgr := newTestManager(t)

	prev, err := mgr.NextIndex()
	if err != nil {
		t.Fatalf("NextIndex failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		cur, err := mgr.NextIndex()
		if err != nil {
			t.Fatalf("NextIndex failed: %v", err)
		}
		if cur <= prev {
			t.Fatalf("NextIndex not increasing: %d after %d", cur, prev)
		}
		prev = cur
	}
}

func TestQueueStats(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("a", "1")
	mgr.EnqueueDel("b")
	if err := mgr.ForceFlush(); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	stats := mgr.QueueStats()
	if stats.EnqueueTotal != 2 || stats.EnqueueSet != 1 || stats.EnqueueDelete != 1 {
		t.Errorf("unexpected enqueue counters: %+v", stats)
	}
	if stats.ForceFlushes == 0 {
		t.Errorf("force flush not counted: %+v", stats)
	}
	if stats.FlushedTasks != 2 {
		t.Errorf("flushed tasks = %d, want 2", stats.FlushedTasks)
	}
}

func TestCloseFlushesAndReopens(t *testing.T) {
	dir := t.TempDir()

	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	mgr.InitWriteQueue(100, 50*time.Millisecond)
	mgr.EnqueueSet("durable", "yes")
	mgr.Close() // Close 前没有显式 ForceFlush

	reopened, err := NewManager(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	val, err := reopened.Get("durable")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(val) != "yes" {
		t.Errorf("got %q, want %q", val, "yes")
	}
}

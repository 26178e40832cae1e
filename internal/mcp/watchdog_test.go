package mcp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchParentDetectsParentDeath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var canceled atomic.Bool
	var pid atomic.Int64
	pid.Store(100)

	watchParent(ctx, func() { canceled.Store(true) }, func() int { return int(pid.Load()) }, time.Millisecond)

	pid.Store(1) // reparented to init
	deadline := time.Now().Add(time.Second)
	for !canceled.Load() {
		if time.Now().After(deadline) {
			t.Fatal("parent death not detected")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatchParentStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var canceled atomic.Bool
	watchParent(ctx, func() { canceled.Store(true) }, func() int { return 100 }, time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	if canceled.Load() {
		t.Error("cancel fired without a parent change")
	}
}

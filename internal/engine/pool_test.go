package engine

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllIndices(t *testing.T) {
	var seen int64
	p := NewPool(4)

	err := p.Run(context.Background(), 37, func(_ context.Context, _ int) {
		atomic.AddInt64(&seen, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	if seen != 37 {
		t.Error("expected all jobs to run, got", seen)
	}
}

func TestPoolZeroConcurrencyRunsSequentially(t *testing.T) {
	p := NewPool(0)

	var max int64
	var cur int64
	err := p.Run(context.Background(), 10, func(_ context.Context, _ int) {
		n := atomic.AddInt64(&cur, 1)
		if n > atomic.LoadInt64(&max) {
			atomic.StoreInt64(&max, n)
		}
		atomic.AddInt64(&cur, -1)
	})
	if err != nil {
		t.Fatal(err)
	}

	if max != 1 {
		t.Error("expected concurrency 1, observed overlap of", max)
	}
}

func TestPoolContinuesAfterPerJobFailureCapturedInline(t *testing.T) {
	p := NewPool(2)

	failed := make([]bool, 5)
	err := p.Run(context.Background(), 5, func(_ context.Context, i int) {
		if i == 2 {
			failed[i] = true
			return
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, f := range failed {
		if i == 2 && !f {
			t.Error("expected index 2 to be marked failed")
		}
		if i != 2 && f {
			t.Error("unexpected failure at index", i)
		}
	}
}

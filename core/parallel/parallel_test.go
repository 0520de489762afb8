package parallel

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/aokisawa/riskbench/pkg/errors"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(4)
	var done [100]int32

	errs := p.Run(context.Background(), len(done), func(i int) error {
		atomic.AddInt32(&done[i], 1)
		return nil
	})

	for i, err := range errs {
		if err != nil {
			t.Errorf("task %d error = %v, want nil", i, err)
		}
		if done[i] != 1 {
			t.Errorf("task %d ran %d times, want 1", i, done[i])
		}
	}
}

func TestPoolReportsPerTaskErrors(t *testing.T) {
	p := NewPool(3)

	errs := p.Run(context.Background(), 10, func(i int) error {
		if i%2 == 1 {
			return errors.Newf("task %d failed", i)
		}
		return nil
	})

	for i, err := range errs {
		if i%2 == 1 && err == nil {
			t.Errorf("task %d error = nil, want error", i)
		}
		if i%2 == 0 && err != nil {
			t.Errorf("task %d error = %v, want nil", i, err)
		}
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(2)

	errs := p.Run(context.Background(), 4, func(i int) error {
		if i == 2 {
			panic("boom")
		}
		return nil
	})

	if errs[2] == nil {
		t.Fatalf("panicking task error = nil, want PanicError")
	}
	var pe *errors.PanicError
	if !errors.As(errs[2], &pe) {
		t.Errorf("panicking task error = %T, want *PanicError", errs[2])
	}
	for i := range errs {
		if i != 2 && errs[i] != nil {
			t.Errorf("task %d error = %v, want nil", i, errs[i])
		}
	}
}

func TestPoolCancelledContext(t *testing.T) {
	p := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := int32(0)
	errs := p.Run(ctx, 5, func(i int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	if ran != 0 {
		t.Errorf("%d tasks ran after cancellation, want 0", ran)
	}
	for i, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("task %d error = %v, want context.Canceled", i, err)
		}
	}
}

func TestPoolDefaultWorkers(t *testing.T) {
	if got := NewPool(0).Workers(); got != runtime.NumCPU() {
		t.Errorf("Workers() = %d, want %d", got, runtime.NumCPU())
	}
	if got := NewPool(7).Workers(); got != 7 {
		t.Errorf("Workers() = %d, want 7", got)
	}
}

func TestPoolZeroTasks(t *testing.T) {
	errs := NewPool(2).Run(context.Background(), 0, func(i int) error {
		t.Fatal("no task should run")
		return nil
	})
	if len(errs) != 0 {
		t.Errorf("Run() returned %d errors for zero tasks", len(errs))
	}
}

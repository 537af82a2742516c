package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/camden-git/siteguard/logger"
)

func TestDoReturnsJobError(t *testing.T) {
	p := NewDetectionPool(4, 2, logger.Nop())
	defer p.Stop()

	want := errors.New("boom")
	if err := p.Do(context.Background(), KindPlate, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	var ran int32
	if err := p.Do(context.Background(), KindParking, func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("job did not run")
	}
}

func TestDoRecoversPanics(t *testing.T) {
	p := NewDetectionPool(1, 1, logger.Nop())
	defer p.Stop()

	err := p.Do(context.Background(), KindVerify, func(context.Context) error { panic("bad frame") })
	if err == nil {
		t.Fatalf("expected error from panicking job")
	}
	// the worker survived
	if err := p.Do(context.Background(), KindVerify, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
}

func TestDoQueueFull(t *testing.T) {
	p := NewDetectionPool(1, 1, logger.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	go p.Do(context.Background(), KindEnroll, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	// the first attempt takes the only queue slot and gives up waiting,
	// the next one finds the queue full
	var err error
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err = p.Do(ctx, KindEnroll, func(context.Context) error { return nil })
		cancel()
		if errors.Is(err, ErrQueueFull) {
			break
		}
	}
	close(release)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	p.Stop()
}

func TestDoAfterStop(t *testing.T) {
	p := NewDetectionPool(1, 1, logger.Nop())
	p.Stop()
	p.Stop()
	if err := p.Do(context.Background(), KindPlate, func(context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("err = %v, want ErrPoolStopped", err)
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	p := NewDetectionPool(2, 1, logger.Nop())
	defer p.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, KindPlate, func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tab-live/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_Restarts_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a worker that panics on every run
	var runs atomic.Int32
	workerMock := mocks.NewMockWorker(ctrl)
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			runs.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	// When the supervisor runs it until the context expires
	go sup.Add(workerMock).Run(ctx)
	time.Sleep(900 * time.Millisecond)

	// Then the worker was restarted after each panic
	req.GreaterOrEqual(runs.Load(), int32(2))
}

func TestSupervisor_Leaves_A_Finished_Worker_Alone(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a worker that finishes cleanly on its first run
	workerMock := mocks.NewMockWorker(ctrl)
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(log)
	done := make(chan struct{})

	// When the supervisor runs it
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	// Then Run returns without ever restarting the worker
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("supervisor should have stopped after the worker finished")
	}
}

func TestSupervisor_Stop_Cancels_Every_Worker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given two workers that block until their context is canceled
	blocking := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}
	first := mocks.NewMockWorker(ctrl)
	first.EXPECT().Run(gomock.Any()).DoAndReturn(blocking).Times(1)
	second := mocks.NewMockWorker(ctrl)
	second.EXPECT().Run(gomock.Any()).DoAndReturn(blocking).Times(1)

	sup := NewSupervisor(log)
	done := make(chan struct{})

	go func() {
		sup.Add(first, second).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	time.Sleep(100 * time.Millisecond)
	sup.Stop()

	// Then both workers unwind and Run returns
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("supervisor should have unwound after Stop")
	}
}

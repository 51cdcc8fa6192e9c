package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/feedbackloop/actionflow/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

func TestDispatcher(t *testing.T) {
	d := async.NewDispatcher()
	var count atomic.Int32

	for i := 0; i < 5; i++ {
		d.Go(context.Background(), "count", func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
	}
	d.Go(context.Background(), "fail", func(ctx context.Context) error {
		return errors.New("ignored")
	})
	d.Go(context.Background(), "panic", func(ctx context.Context) error {
		panic("recovered")
	})

	d.Wait()
	gt.Value(t, count.Load()).Equal(int32(5))
}

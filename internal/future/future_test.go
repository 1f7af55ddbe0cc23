package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bahjat/arrestorgear/internal/platform/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestFuture_SettlesOnce(t *testing.T) {
	f, resolve, reject := New[int]()
	assert.False(t, f.Settled())

	resolve(1)
	resolve(2)
	reject(errBoom)

	require.True(t, f.Settled())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_RejectNilReason(t *testing.T) {
	f := Rejected[string](nil)

	_, err := f.Result()
	assert.ErrorIs(t, err, ErrNilReason)
}

func TestGo(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(context.Context) (string, error)
		want    string
		wantErr error
	}{
		{
			name: "value",
			fn:   func(context.Context) (string, error) { return "ok", nil },
			want: "ok",
		},
		{
			name:    "error",
			fn:      func(context.Context) (string, error) { return "", errBoom },
			wantErr: errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Go(context.Background(), tt.fn).Result()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestGo_PanicRejects(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		panic(errBoom)
	})

	_, err := f.Result()
	require.Error(t, err)

	var appErr *errs.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errs.HookFault, appErr.Kind)
	assert.ErrorIs(t, err, errBoom)
}

func TestFuture_WaitContextEnds(t *testing.T) {
	f, _, _ := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.Settled())
}

func TestFuture_ManyWaiters(t *testing.T) {
	f, resolve, _ := New[int]()

	results := make(chan int, 3)
	for range 3 {
		go func() {
			v, _ := f.Result()
			results <- v
		}()
	}
	resolve(7)

	for range 3 {
		assert.Equal(t, 7, <-results)
	}
}

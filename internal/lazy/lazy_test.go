package lazy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_LoadsOnce(t *testing.T) {
	calls := 0
	v := New(func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	_, loaded := v.Loaded()
	assert.False(t, loaded)

	for i := 0; i < 3; i++ {
		got, err := v.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}
	assert.Equal(t, 1, calls)

	got, loaded := v.Loaded()
	assert.True(t, loaded)
	assert.Equal(t, 42, got)
}

func TestValue_RetriesAfterError(t *testing.T) {
	calls := 0
	v := New(func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("not yet")
		}
		return "ready", nil
	})

	_, err := v.Get(context.Background())
	assert.Error(t, err)
	_, loaded := v.Loaded()
	assert.False(t, loaded)

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", got)
}

func TestValue_Reset(t *testing.T) {
	calls := 0
	v := New(func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})

	first, _ := v.Get(context.Background())
	old, loaded := v.Reset()
	assert.True(t, loaded)
	assert.Equal(t, first, old)

	second, _ := v.Get(context.Background())
	assert.Equal(t, 2, second)
}

func TestValue_ConcurrentGet(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	v := New(func(ctx context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 7, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

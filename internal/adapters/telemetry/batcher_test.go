package telemetry_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
)

type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) add(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, string(data))
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

func TestBatcher_FlushOnSize(t *testing.T) {
	var c collector
	b := telemetry.NewBatcher(5, time.Hour, c.add)
	defer func() { _ = b.Close() }()

	_, err := b.Write([]byte("123"))
	require.NoError(t, err)
	assert.Empty(t, c.get())

	_, err = b.Write([]byte("456"))
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, c.get())
}

func TestBatcher_FlushOnTime(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var c collector
		b := telemetry.NewBatcher(100, 50*time.Millisecond, c.add)

		_, err := b.Write([]byte("test"))
		require.NoError(t, err)
		assert.Empty(t, c.get())

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, []string{"test"}, c.get())

		require.NoError(t, b.Close())
	})
}

func TestBatcher_CloseFlushesAndRejectsWrites(t *testing.T) {
	var c collector
	b := telemetry.NewBatcher(100, time.Hour, c.add)

	_, err := b.Write([]byte("tail"))
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, []string{"tail"}, c.get())

	_, err = b.Write([]byte("late"))
	assert.ErrorIs(t, err, telemetry.ErrBatcherClosed)
}

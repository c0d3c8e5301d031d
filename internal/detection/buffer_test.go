package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBufferPushAndOrder(t *testing.T) {
	t.Parallel()

	b := NewSampleBuffer(3)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 3, b.Cap())

	b.Push(1)
	b.Push(2)
	b.Push(3)
	assert.Equal(t, []float64{1, 2, 3}, b.Values())

	// Overflow evicts the oldest sample first.
	b.Push(4)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []float64{2, 3, 4}, b.Values())

	b.Push(5)
	b.Push(6)
	assert.Equal(t, []float64{4, 5, 6}, b.Values())
}

func TestSampleBufferWindow(t *testing.T) {
	t.Parallel()

	b := NewSampleBuffer(5)
	for i := 1; i <= 5; i++ {
		b.Push(float64(i))
	}

	tests := []struct {
		name string
		n    int
		want []float64
	}{
		{"partial window", 3, []float64{3, 4, 5}},
		{"full window", 5, []float64{1, 2, 3, 4, 5}},
		{"oversized window clamps", 10, []float64{1, 2, 3, 4, 5}},
		{"zero window", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Window(tt.n))
		})
	}
}

func TestSampleBufferWindowAfterWrap(t *testing.T) {
	t.Parallel()

	b := NewSampleBuffer(4)
	for i := 1; i <= 7; i++ {
		b.Push(float64(i))
	}
	assert.Equal(t, []float64{4, 5, 6, 7}, b.Values())
	assert.Equal(t, []float64{6, 7}, b.Window(2))
}

func TestSampleBufferLastAndReset(t *testing.T) {
	t.Parallel()

	b := NewSampleBuffer(2)

	_, ok := b.Last()
	assert.False(t, ok)

	b.Push(0.3)
	b.Push(0.7)
	last, ok := b.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.7, last, 1e-12)

	b.Reset()
	assert.Equal(t, 0, b.Len())
	_, ok = b.Last()
	assert.False(t, ok)
}

func TestSampleBufferMinimumCapacity(t *testing.T) {
	t.Parallel()

	b := NewSampleBuffer(0)
	assert.Equal(t, 1, b.Cap())
	b.Push(1)
	b.Push(2)
	assert.Equal(t, []float64{2}, b.Values())
}

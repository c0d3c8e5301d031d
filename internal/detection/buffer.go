package detection

// SampleBuffer is a fixed-capacity FIFO ring of scalar samples. When full,
// the oldest sample is evicted before the newest is appended, so length
// never exceeds capacity and order stays chronological.
//
// The buffer is not safe for concurrent use; ownership is confined to the
// detector's tick path and callers only ever receive copies.
type SampleBuffer struct {
	data  []float64
	start int
	count int
}

// NewSampleBuffer creates a buffer holding at most capacity samples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleBuffer{data: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest if the buffer is full.
func (b *SampleBuffer) Push(v float64) {
	if b.count == len(b.data) {
		b.data[b.start] = v
		b.start = (b.start + 1) % len(b.data)
		return
	}
	b.data[(b.start+b.count)%len(b.data)] = v
	b.count++
}

// Window returns a copy of the most recent n samples in chronological
// order, or all samples if fewer than n are buffered.
func (b *SampleBuffer) Window(n int) []float64 {
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	first := (b.start + b.count - n) % len(b.data)
	for i := range n {
		out[i] = b.data[(first+i)%len(b.data)]
	}
	return out
}

// Values returns a copy of the whole buffered history in chronological order.
func (b *SampleBuffer) Values() []float64 {
	return b.Window(b.count)
}

// Last returns the most recent sample, if any.
func (b *SampleBuffer) Last() (float64, bool) {
	if b.count == 0 {
		return 0, false
	}
	return b.data[(b.start+b.count-1)%len(b.data)], true
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *SampleBuffer) Cap() int {
	return len(b.data)
}

// Reset clears all history.
func (b *SampleBuffer) Reset() {
	b.start = 0
	b.count = 0
}

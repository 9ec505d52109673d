package audio

import (
	"encoding/binary"
	"sync"
)

// LevelRing keeps the most recent samples of the active recording so the
// terminal can draw a live waveform while the microphone is open.
type LevelRing struct {
	samples []int16
	head    int // Next write position
	count   int // Number of valid samples (up to capacity)
	mu      sync.RWMutex
}

// NewLevelRing creates a ring with the given capacity.
func NewLevelRing(capacity int) *LevelRing {
	return &LevelRing{
		samples: make([]int16, capacity),
	}
}

// Write appends samples, overwriting the oldest once full.
func (b *LevelRing) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.samples)
	if capacity == 0 {
		return
	}

	for _, sample := range samples {
		b.samples[b.head] = sample
		b.head = (b.head + 1) % capacity

		if b.count < capacity {
			b.count++
		}
	}
}

// Read returns up to n most recent samples in chronological order.
func (b *LevelRing) Read(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}

	if n > b.count {
		n = b.count
	}

	result := make([]int16, n)
	capacity := len(b.samples)

	// head is the next write position, so the last n start at head - n
	start := (b.head - n + capacity) % capacity

	for i := range n {
		result[i] = b.samples[(start+i)%capacity]
	}

	return result
}

// Count returns the number of valid samples.
func (b *LevelRing) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}

// Reset forgets every sample.
func (b *LevelRing) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.head = 0
	b.count = 0
}

// BytesToInt16 converts S16LE (signed 16-bit little-endian) bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)

	for i := range numSamples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	return samples
}

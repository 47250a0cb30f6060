package buffer

import (
	"math"
	"sync"
)

type Average float64
type Minimum float64
type Maximum float64
type Sum float64

// SampleBuffer is a fixed size ring of readings. The first value added fills
// the whole ring so averages are meaningful from the first sample.
type SampleBuffer struct {
	position int
	size     int
	data     []float64
	lock     sync.Mutex
	first    bool
}

func NewBuffer(size int) *SampleBuffer {
	if size < 1 {
		size = 1
	}
	return &SampleBuffer{
		first: true,
		size:  size,
		data:  make([]float64, size),
	}
}

func (b *SampleBuffer) AddItem(val float64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.first {
		for i := range b.data {
			b.data[i] = val
		}
		b.first = false
	}
	b.data[b.position] = val
	b.position++
	if b.position == b.size {
		b.position = 0
	}
}

// IsEmpty reports whether nothing has been added yet.
func (b *SampleBuffer) IsEmpty() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.first
}

func (b *SampleBuffer) GetAverageMinMaxSum() (Average, Minimum, Maximum, Sum) {
	b.lock.Lock()
	defer b.lock.Unlock()
	min := math.MaxFloat64
	max := -math.MaxFloat64
	sum := 0.0
	for _, x := range b.data {
		if x > max {
			max = x
		}
		if x < min {
			min = x
		}
		sum += x
	}
	return Average(sum / float64(b.size)), Minimum(min), Maximum(max), Sum(sum)
}

// AverageLast averages the most recent numberOfItems values.
func (b *SampleBuffer) AverageLast(numberOfItems int) Average {
	b.lock.Lock()
	defer b.lock.Unlock()
	if numberOfItems > b.size {
		numberOfItems = b.size
	}
	if numberOfItems < 1 {
		return 0
	}
	index := b.position - numberOfItems
	if index < 0 {
		// reverse wrap
		index += b.size
	}
	sum := 0.0
	for i := 0; i < numberOfItems; i++ {
		sum += b.data[index]
		index++
		if index == b.size {
			index = 0
		}
	}
	return Average(sum / float64(numberOfItems))
}

func (b *SampleBuffer) GetLast() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	index := b.position - 1
	if index < 0 {
		index += b.size
	}
	return b.data[index]
}

func (b *SampleBuffer) GetSize() int {
	return b.size
}

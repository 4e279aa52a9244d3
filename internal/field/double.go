package field

// DoubleBuffer holds two storages and a parity bit selecting which one is
// readable. Swap is the only way parity changes.
type DoubleBuffer[T any] struct {
	bufs   [2]T
	parity int
	swaps  int
}

func NewDoubleBuffer[T any](a, b T) *DoubleBuffer[T] {
	return &DoubleBuffer[T]{bufs: [2]T{a, b}}
}

// Current is the readable buffer.
func (d *DoubleBuffer[T]) Current() T { return d.bufs[d.parity] }

// Next is the write target.
func (d *DoubleBuffer[T]) Next() T { return d.bufs[1-d.parity] }

func (d *DoubleBuffer[T]) Swap() {
	d.parity = 1 - d.parity
	d.swaps++
}

func (d *DoubleBuffer[T]) Parity() int { return d.parity }

// Swaps counts parity flips since construction.
func (d *DoubleBuffer[T]) Swaps() int { return d.swaps }

// Both returns the pair in storage order, independent of parity.
func (d *DoubleBuffer[T]) Both() [2]T { return d.bufs }

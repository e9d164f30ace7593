package marshal

const cellSize = handleWidth

// arena owns the scratch cells of one call. All cells come out of a single
// native allocation made before the first argument is acquired, so handing out
// a cell cannot fail. The allocation is returned once, after every guard fired.
type arena struct {
	base uint32
	size uint32
	next uint32
}

func (a *arena) reserve(f *Frame, cells int) error {
	if cells == 0 {
		return nil
	}
	size := uint32(cells) * cellSize
	ptr, err := f.allocate(size)
	if err != nil {
		return err
	}
	a.base, a.size, a.next = ptr, size, 0
	return nil
}

func (a *arena) cell() (uint32, bool) {
	if a.next+cellSize > a.size {
		return 0, false
	}
	ptr := a.base + a.next
	a.next += cellSize
	return ptr, true
}

func (a *arena) release(f *Frame) {
	if a.size == 0 {
		return
	}
	base := a.base
	a.base, a.size, a.next = 0, 0, 0
	f.freeNow(base)
}

package bf

// TapeSize is the default number of cells on a tape.
const TapeSize = 30_000

// Tape is a fixed number of byte cells and a cursor. Cursor moves wrap
// around both ends of the tape.
type Tape struct {
	cells  []uint8
	cursor int
}

// NewTape returns a zeroed tape of size cells with the cursor on cell 0.
// A size below 1 falls back to TapeSize.
func NewTape(size int) *Tape {
	if size < 1 {
		size = TapeSize
	}
	return &Tape{cells: make([]uint8, size)}
}

func (t *Tape) Len() int {
	return len(t.cells)
}

func (t *Tape) Cursor() int {
	return t.cursor
}

func (t *Tape) Reset() {
	clear(t.cells)
	t.cursor = 0
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// At returns the cell at index j, wrapping j onto the tape, so At(-1) is
// the last cell.
func (t *Tape) At(j int) uint8 {
	return t.cells[wrapIndex(j, len(t.cells))]
}

func (t *Tape) outOfBounds() bool {
	return t.cursor < 0 || t.cursor >= len(t.cells)
}

// Read returns the cell under the cursor.
func (t *Tape) Read() (uint8, error) {
	if t.outOfBounds() {
		return 0, &Error{Kind: OutOfBounds, Cursor: t.cursor}
	}
	return t.cells[t.cursor], nil
}

// Write stores v in the cell under the cursor.
func (t *Tape) Write(v uint8) error {
	if t.outOfBounds() {
		return &Error{Kind: OutOfBounds, Cursor: t.cursor}
	}
	t.cells[t.cursor] = v
	return nil
}

// Add adds n to the cell under the cursor, wrapping at 256.
func (t *Tape) Add(n uint8) error {
	v, err := t.Read()
	if err != nil {
		return err
	}
	return t.Write(v + n)
}

// Sub subtracts n from the cell under the cursor, wrapping at 0.
func (t *Tape) Sub(n uint8) error {
	v, err := t.Read()
	if err != nil {
		return err
	}
	return t.Write(v - n)
}

func (t *Tape) Forward(n int) {
	t.cursor = wrapIndex(t.cursor+n%len(t.cells), len(t.cells))
}

func (t *Tape) Backward(n int) {
	t.cursor = wrapIndex(t.cursor-n%len(t.cells), len(t.cells))
}

// InputBuffer is a read-once byte source over a string.
type InputBuffer struct {
	data   string
	cursor int
}

func NewInputBuffer(s string) *InputBuffer {
	return &InputBuffer{data: s}
}

// Read returns the next byte, or 0 once the input is exhausted.
func (in *InputBuffer) Read() uint8 {
	if in.cursor >= len(in.data) {
		return 0
	}
	b := in.data[in.cursor]
	in.cursor++
	return b
}

// Remaining is the number of unread bytes.
func (in *InputBuffer) Remaining() int {
	return len(in.data) - in.cursor
}

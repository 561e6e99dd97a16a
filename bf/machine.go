package bf

import (
	"context"
	"errors"
	"strings"
)

// The context is polled once every pollInterval steps.
const pollInterval = 1 << 12

// Machine runs a Program over a Tape.
type Machine struct {
	Program Program
	// MaxSteps bounds the number of steps of a run when non-zero.
	MaxSteps uint64

	tape  *Tape
	jumps *JumpTable
	pc    int
	steps uint64
}

// NewMachine validates the brackets of program and returns a machine ready
// to run it on tape.
func NewMachine(program Program, tape *Tape) (*Machine, error) {
	jumps, err := NewJumpTable(program)
	if err != nil {
		return nil, err
	}
	return &Machine{
		Program: program,
		tape:    tape,
		jumps:   jumps,
	}, nil
}

// Reset rewinds the machine and clears its tape.
func (m *Machine) Reset() {
	m.pc = 0
	m.steps = 0
	m.tape.Reset()
}

func (m *Machine) Tape() *Tape {
	return m.tape
}

// Steps is the number of steps executed so far. A step is one dispatched
// command or one cursor move inside a scan.
func (m *Machine) Steps() uint64 {
	return m.steps
}

func (m *Machine) tick(ctx context.Context) error {
	m.steps++
	if m.MaxSteps > 0 && m.steps > m.MaxSteps {
		return &Error{Kind: Timeout, PC: m.pc, Steps: m.steps - 1}
	}
	if m.steps%pollInterval == 0 {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: Timeout, PC: m.pc, Steps: m.steps, Err: err}
		}
	}
	return nil
}

// fault stamps the program counter on tape errors.
func (m *Machine) fault(err error) error {
	var e *Error
	if errors.As(err, &e) {
		e.PC = m.pc
	}
	return err
}

// scan moves the cursor by n until it rests on a zero cell.
func (m *Machine) scan(ctx context.Context, move func(int), n int) error {
	for {
		v, err := m.tape.Read()
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		if err := m.tick(ctx); err != nil {
			return err
		}
		move(n)
	}
}

// transfer adds the current cell to the cell n moves away and zeroes it.
func (m *Machine) transfer(there, back func(int), n int) error {
	v, err := m.tape.Read()
	if err != nil || v == 0 {
		return err
	}
	if err := m.tape.Write(0); err != nil {
		return err
	}
	there(n)
	if err := m.tape.Add(v); err != nil {
		return err
	}
	back(n)
	return nil
}

// Execute runs the program to completion and returns everything it
// printed. Each output byte becomes one character (rune) of the result.
// A failed run returns no output.
func (m *Machine) Execute(ctx context.Context, input *InputBuffer) (string, error) {
	var output strings.Builder
	tape := m.tape

	for m.pc < len(m.Program) {
		if err := m.tick(ctx); err != nil {
			return "", err
		}

		var err error
		c := m.Program[m.pc]
		switch c.Op {
		case Right:
			tape.Forward(c.N)
		case Left:
			tape.Backward(c.N)
		case Increment:
			err = tape.Add(uint8(c.N))
		case Decrement:
			err = tape.Sub(uint8(c.N))
		case Output:
			var v uint8
			if v, err = tape.Read(); err == nil {
				output.WriteRune(rune(v))
			}
		case Input:
			err = tape.Write(input.Read())
		case LoopStart:
			var v uint8
			if v, err = tape.Read(); err == nil && v == 0 {
				m.pc = m.jumps.Find(m.pc)
			}
		case LoopEnd:
			var v uint8
			if v, err = tape.Read(); err == nil && v != 0 {
				m.pc = m.jumps.Find(m.pc)
			}
		case Clear:
			err = tape.Write(0)
		case ScanRight:
			err = m.scan(ctx, tape.Forward, c.N)
		case ScanLeft:
			err = m.scan(ctx, tape.Backward, c.N)
		case MoveRight:
			err = m.transfer(tape.Forward, tape.Backward, c.N)
		case MoveLeft:
			err = m.transfer(tape.Backward, tape.Forward, c.N)
		default:
			panic("bf: unknown command " + c.String())
		}
		if err != nil {
			return "", m.fault(err)
		}

		m.pc++
	}

	return output.String(), nil
}

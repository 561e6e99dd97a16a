package bf

import (
	"strconv"
	"strings"
)

// Op identifies the kind of a Command. The eight primitive ops use their
// source symbol as value.
type Op rune

const (
	Increment Op = '+'
	Decrement Op = '-'
	Left      Op = '<'
	Right     Op = '>'
	Output    Op = '.'
	Input     Op = ','
	LoopStart Op = '['
	LoopEnd   Op = ']'
)

// Composite ops, introduced by Optimize.
const (
	Clear     Op = 'z' // [-]
	ScanRight Op = 's' // [>]
	ScanLeft  Op = 'S' // [<]
	MoveRight Op = 'm' // [->+<]
	MoveLeft  Op = 'M' // [-<+>]
)

func (o Op) String() string {
	switch o {
	case Increment, Decrement, Left, Right, Output, Input, LoopStart, LoopEnd:
		return string(rune(o))
	case Clear:
		return "clear"
	case ScanRight:
		return "scan>"
	case ScanLeft:
		return "scan<"
	case MoveRight:
		return "move>"
	case MoveLeft:
		return "move<"
	default:
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
}

// Command is a single instruction. N is the repeat count of the motion and
// arithmetic ops (arithmetic counts are kept modulo 256) and the step of
// the scan and move composites. It is unused by the other ops.
type Command struct {
	Op Op
	N  int
}

// Source renders the command back to program text. Composites render as
// the loop idiom they replaced.
func (c Command) Source() string {
	switch c.Op {
	case Increment, Decrement, Left, Right:
		return strings.Repeat(string(rune(c.Op)), c.N)
	case Output, Input, LoopStart, LoopEnd:
		return string(rune(c.Op))
	case Clear:
		return "[-]"
	case ScanRight:
		return "[" + strings.Repeat(">", c.N) + "]"
	case ScanLeft:
		return "[" + strings.Repeat("<", c.N) + "]"
	case MoveRight:
		return "[-" + strings.Repeat(">", c.N) + "+" + strings.Repeat("<", c.N) + "]"
	case MoveLeft:
		return "[-" + strings.Repeat("<", c.N) + "+" + strings.Repeat(">", c.N) + "]"
	default:
		return ""
	}
}

func (c Command) String() string {
	switch c.Op {
	case Increment, Decrement, Left, Right, ScanRight, ScanLeft, MoveRight, MoveLeft:
		return c.Op.String() + strconv.Itoa(c.N)
	default:
		return c.Op.String()
	}
}

// Program is an ordered sequence of commands. It is not modified once built.
type Program []Command

// String renders the program back to source text.
func (p Program) String() string {
	var sb strings.Builder
	for _, c := range p {
		sb.WriteString(c.Source())
	}
	return sb.String()
}

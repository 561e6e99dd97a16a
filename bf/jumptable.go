package bf

import "fmt"

const noJump = -1

// JumpTable pairs the index of every loop start with the index of its
// matching loop end, in both directions. Indices of other commands map to
// nothing.
type JumpTable struct {
	forward  []int // loop start -> loop end
	backward []int // loop end -> loop start
}

// NewJumpTable matches the brackets of program. It fails with
// UnmatchedLoopEnd on a loop end with no open loop and with
// UnmatchedLoopStart when a loop is left open at the end.
func NewJumpTable(program Program) (*JumpTable, error) {
	jt := &JumpTable{
		forward:  make([]int, len(program)),
		backward: make([]int, len(program)),
	}
	for i := range program {
		jt.forward[i] = noJump
		jt.backward[i] = noJump
	}

	var stack []int
	for pc, c := range program {
		switch c.Op {
		case LoopStart:
			stack = append(stack, pc)
		case LoopEnd:
			if len(stack) == 0 {
				return nil, &Error{Kind: UnmatchedLoopEnd, PC: pc}
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jt.forward[start] = pc
			jt.backward[pc] = start
		}
	}

	if len(stack) != 0 {
		return nil, &Error{Kind: UnmatchedLoopStart, PC: stack[len(stack)-1]}
	}

	return jt, nil
}

// Find returns the index paired with the bracket at pc. Looking up an index
// that holds no bracket is a programming error and panics.
func (jt *JumpTable) Find(pc int) int {
	if target := jt.forward[pc]; target != noJump {
		return target
	}
	if target := jt.backward[pc]; target != noJump {
		return target
	}
	panic(fmt.Sprintf("bf: no bracket at %d", pc))
}

// Len is the length of the program the table was built for.
func (jt *JumpTable) Len() int {
	return len(jt.forward)
}

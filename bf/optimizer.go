package bf

// lookahead is the number of commands after a loop start the rules may
// inspect.
const lookahead = 5

// A rule rewrites the loop starting at a loop-start command. It is given
// the commands following the loop start (at most lookahead of them) and
// reports the replacement and how many commands, loop start included, it
// consumes.
type rule struct {
	name    string
	rewrite func(window []Command) (Command, int, bool)
}

func is(c Command, op Op, n int) bool {
	return c.Op == op && c.N == n
}

// rules in priority order; the first match wins.
var rules = []rule{
	{"clear", func(w []Command) (Command, int, bool) {
		if len(w) < 2 || w[1].Op != LoopEnd {
			return Command{}, 0, false
		}
		if !is(w[0], Increment, 1) && !is(w[0], Decrement, 1) {
			return Command{}, 0, false
		}
		return Command{Op: Clear}, 3, true
	}},
	{"scan right", func(w []Command) (Command, int, bool) {
		if len(w) < 2 || w[0].Op != Right || w[1].Op != LoopEnd {
			return Command{}, 0, false
		}
		return Command{Op: ScanRight, N: w[0].N}, 3, true
	}},
	{"scan left", func(w []Command) (Command, int, bool) {
		if len(w) < 2 || w[0].Op != Left || w[1].Op != LoopEnd {
			return Command{}, 0, false
		}
		return Command{Op: ScanLeft, N: w[0].N}, 3, true
	}},
	{"move right", moveRule(Right, Left, MoveRight)},
	{"move left", moveRule(Left, Right, MoveLeft)},
}

// moveRule matches [-(there)+(back)] where both motions have the same count.
func moveRule(there, back, op Op) func([]Command) (Command, int, bool) {
	return func(w []Command) (Command, int, bool) {
		if len(w) < 5 {
			return Command{}, 0, false
		}
		if !is(w[0], Decrement, 1) || w[1].Op != there || !is(w[2], Increment, 1) ||
			w[3].Op != back || w[4].Op != LoopEnd || w[1].N != w[3].N {
			return Command{}, 0, false
		}
		return Command{Op: op, N: w[1].N}, 6, true
	}
}

func rewriteLoop(program Program, idx int) (Command, int, bool) {
	end := min(idx+1+lookahead, len(program))
	window := program[idx+1 : end]
	for _, r := range rules {
		if c, consumed, ok := r.rewrite(window); ok {
			return c, consumed, true
		}
	}
	return Command{}, 0, false
}

// Optimize returns an equivalent program with the common loop idioms
// replaced by composite commands. It is a single left-to-right pass; the
// result is not optimized again.
func Optimize(program Program) Program {
	optimized := make(Program, 0, len(program))

	idx := 0
	for idx < len(program) {
		if program[idx].Op == LoopStart {
			if c, consumed, ok := rewriteLoop(program, idx); ok {
				optimized = append(optimized, c)
				idx += consumed
				continue
			}
		}
		optimized = append(optimized, program[idx])
		idx++
	}

	return optimized
}

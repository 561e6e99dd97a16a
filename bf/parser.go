package bf

func isCommand(c rune) bool {
	switch Op(c) {
	case Increment, Decrement, Left, Right, Output, Input, LoopStart, LoopEnd:
		return true
	}
	return false
}

func isFoldable(c rune) bool {
	switch Op(c) {
	case Increment, Decrement, Left, Right:
		return true
	}
	return false
}

// Parse converts source text into a Program. Characters other than the
// eight command symbols are ignored. Runs of the same motion or arithmetic
// symbol fold into one command, even across ignored characters. Parsing
// never fails: bracket balance is checked by NewJumpTable.
func Parse(source string) Program {
	chars := []rune(source)
	program := make(Program, 0, len(chars))

	for idx := 0; idx < len(chars); idx++ {
		current := chars[idx]
		if !isCommand(current) {
			continue
		}
		if !isFoldable(current) {
			program = append(program, Command{Op: Op(current)})
			continue
		}

		n := 1
		// consume repeats, stopping before the next different command
		for idx+1 < len(chars) {
			next := chars[idx+1]
			if next == current {
				n++
			} else if isCommand(next) {
				break
			}
			idx++
		}

		if current == '+' || current == '-' {
			n %= 256
		}
		program = append(program, Command{Op: Op(current), N: n})
	}

	return program
}

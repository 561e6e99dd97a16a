package main

import (
	"testing"

	"github.com/MarcinKonowalczyk/bfvm/utils"
)

func TestIsBrainfuckArg(t *testing.T) {
	ok, rest := isBrainfuckArg([]string{"-debug", "brainfuck", "hello.bf", "brainfuck"})
	utils.AssertEqual(t, ok, true)
	utils.AssertEqualArrays(t, rest, []string{"-debug", "hello.bf", "brainfuck"})

	args := []string{"-namespace", "default", "start"}
	ok, rest = isBrainfuckArg(args)
	utils.AssertEqual(t, ok, false)
	utils.AssertEqualArrays(t, rest, args)
}

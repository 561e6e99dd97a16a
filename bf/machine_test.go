package bf_test

import (
	"context"
	"testing"

	"github.com/MarcinKonowalczyk/bfvm/bf"
	"github.com/MarcinKonowalczyk/bfvm/utils"
)

func newMachine(t *testing.T, program bf.Program, size int) *bf.Machine {
	t.Helper()
	machine, err := bf.NewMachine(program, bf.NewTape(size))
	if err != nil {
		t.Fatalf("building machine: %v", err)
	}
	return machine
}

func execute(t *testing.T, machine *bf.Machine, input string) string {
	t.Helper()
	output, err := machine.Execute(context.Background(), bf.NewInputBuffer(input))
	utils.AssertNoError(t, err)
	return output
}

func TestMachine_OutputEmptyTape(t *testing.T) {
	machine := newMachine(t, bf.Parse("."), 8)
	utils.AssertEqual(t, execute(t, machine, ""), "\x00")
}

func TestMachine_InputExhausted(t *testing.T) {
	machine := newMachine(t, bf.Parse("+,"), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 0)
}

func TestMachine_Increment(t *testing.T) {
	machine := newMachine(t, bf.Parse("+"), 8)
	utils.AssertEqual(t, machine.Tape().At(0), 0)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 1)
}

func TestMachine_Decrement(t *testing.T) {
	machine := newMachine(t, bf.Parse("-"), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 255)
}

func TestMachine_MoveRight(t *testing.T) {
	machine := newMachine(t, bf.Parse(">+"), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 0)
	utils.AssertEqual(t, machine.Tape().At(1), 1)
}

func TestMachine_MoveLeft(t *testing.T) {
	machine := newMachine(t, bf.Parse("<+"), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 0)
	utils.AssertEqual(t, machine.Tape().At(-1), 1)
	utils.AssertEqual(t, machine.Tape().Cursor(), 7)
}

func TestMachine_Loop(t *testing.T) {
	machine := newMachine(t, bf.Parse("+++[->+<]"), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 0)
	utils.AssertEqual(t, machine.Tape().At(1), 3)
}

func TestMachine_SkipsLoopOnZero(t *testing.T) {
	machine := newMachine(t, bf.Parse("[+.]+."), 8)
	utils.AssertEqual(t, execute(t, machine, ""), "\x01")
}

func TestMachine_Echo(t *testing.T) {
	machine := newMachine(t, bf.Parse(",[.,]"), 8)
	utils.AssertEqual(t, execute(t, machine, "echo\n"), "echo\n")
}

func TestMachine_OutputIsOneRunePerByte(t *testing.T) {
	machine := newMachine(t, bf.Parse("-."), 8)
	utils.AssertEqual(t, execute(t, machine, ""), "ÿ")
}

func TestMachine_Clear(t *testing.T) {
	machine := newMachine(t, bf.Optimize(bf.Parse("+++++[-]")), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(0), 0)
}

func TestMachine_ScanRight(t *testing.T) {
	// cells 0..2 set, cell 3 zero
	machine := newMachine(t, bf.Optimize(bf.Parse("+>+>+<<[>]")), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().Cursor(), 3)
}

func TestMachine_ScanLeftWraps(t *testing.T) {
	// cells 0, 7 and 6 set; the scan wraps from 0 to 7 and stops on 5
	machine := newMachine(t, bf.Optimize(bf.Parse("+<+<+>>[<]")), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().Cursor(), 5)
}

func TestMachine_ScanStep(t *testing.T) {
	machine := newMachine(t, bf.Optimize(bf.Parse("+>>+>+<<<[>>]")), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().Cursor(), 4)
}

func TestMachine_MoveValue(t *testing.T) {
	machine := newMachine(t, bf.Optimize(bf.Parse(">>+++++>++<[-<<+>>]>[->>>+<<<]")), 8)
	execute(t, machine, "")
	tape := machine.Tape()
	utils.AssertEqual(t, tape.At(0), 5)
	utils.AssertEqual(t, tape.At(2), 0)
	utils.AssertEqual(t, tape.At(3), 0)
	utils.AssertEqual(t, tape.At(6), 2)
	utils.AssertEqual(t, tape.Cursor(), 3)
}

func TestMachine_MoveValueWraps(t *testing.T) {
	// 200 + 100 wraps to 44, and the target lies across the tape end
	machine := newMachine(t, bf.Optimize(bf.Parse(
		"<"+repeat('+', 200)+">"+repeat('+', 100)+"[-<+>]")), 8)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().At(-1), 44)
	utils.AssertEqual(t, machine.Tape().At(0), 0)
	utils.AssertEqual(t, machine.Tape().Cursor(), 0)
}

func TestMachine_MoveValueOnZeroIsNoop(t *testing.T) {
	machine := newMachine(t, bf.Program{{Op: bf.MoveRight, N: 1}}, 4)
	execute(t, machine, "")
	utils.AssertEqual(t, machine.Tape().Cursor(), 0)
	utils.AssertEqual(t, machine.Tape().At(1), 0)
}

func TestMachine_MaxSteps(t *testing.T) {
	machine := newMachine(t, bf.Parse("+[]"), 8)
	machine.MaxSteps = 1000
	output, err := machine.Execute(context.Background(), bf.NewInputBuffer(""))
	utils.AssertErrorIs(t, err, bf.Timeout)
	utils.AssertEqual(t, output, "")
	utils.AssertEqual(t, machine.Steps(), 1001)
}

func TestMachine_MaxStepsCountsScans(t *testing.T) {
	// no zero cell anywhere: the scan never ends
	machine := newMachine(t, bf.Optimize(bf.Parse("+>+>+>+[>]")), 4)
	machine.MaxSteps = 1000
	_, err := machine.Execute(context.Background(), bf.NewInputBuffer(""))
	utils.AssertErrorIs(t, err, bf.Timeout)
}

func TestMachine_FailedRunHasNoOutput(t *testing.T) {
	machine := newMachine(t, bf.Parse("+.[]"), 8)
	machine.MaxSteps = 50
	output, err := machine.Execute(context.Background(), bf.NewInputBuffer(""))
	utils.AssertError(t, err)
	utils.AssertEqual(t, output, "")
}

func TestMachine_ContextCancelled(t *testing.T) {
	machine := newMachine(t, bf.Parse("+[]"), 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := machine.Execute(ctx, bf.NewInputBuffer(""))
	utils.AssertErrorIs(t, err, bf.Timeout)
	utils.AssertErrorIs(t, err, context.Canceled)
}

func TestMachine_Reset(t *testing.T) {
	machine := newMachine(t, bf.Parse(",+."), 8)
	utils.AssertEqual(t, execute(t, machine, "a"), "b")
	utils.AssertEqual(t, machine.Steps(), 3)
	machine.Reset()
	utils.AssertEqual(t, machine.Steps(), 0)
	utils.AssertEqual(t, execute(t, machine, "x"), "y")
}

func TestNewMachine_RejectsUnbalanced(t *testing.T) {
	_, err := bf.NewMachine(bf.Parse("[[]"), bf.NewTape(8))
	utils.AssertErrorIs(t, err, bf.UnmatchedLoopStart)
}

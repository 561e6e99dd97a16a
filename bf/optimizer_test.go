package bf_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/MarcinKonowalczyk/bfvm/bf"
	"github.com/MarcinKonowalczyk/bfvm/utils"
)

func optimize(source string) bf.Program {
	return bf.Optimize(bf.Parse(source))
}

func TestOptimize_Clear(t *testing.T) {
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.Clear}}, optimize("[-]"))
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.Clear}}, optimize("[+]"))
	// +257 folds to +1
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.Clear}}, optimize("["+strings.Repeat("+", 257)+"]"))
}

func TestOptimize_ClearNeedsUnitStep(t *testing.T) {
	expected := bf.Program{
		{Op: bf.LoopStart},
		{Op: bf.Decrement, N: 2},
		{Op: bf.LoopEnd},
	}
	utils.AssertDeepEqual(t, expected, optimize("[--]"))
}

func TestOptimize_Scan(t *testing.T) {
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.ScanRight, N: 1}}, optimize("[>]"))
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.ScanRight, N: 3}}, optimize("[>>>]"))
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.ScanLeft, N: 2}}, optimize("[<<]"))
}

func TestOptimize_Move(t *testing.T) {
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.MoveRight, N: 1}}, optimize("[->+<]"))
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.MoveRight, N: 3}}, optimize("[->>>+<<<]"))
	utils.AssertDeepEqual(t, bf.Program{{Op: bf.MoveLeft, N: 2}}, optimize("[-<<+>>]"))
}

func TestOptimize_MoveNeedsEqualMotion(t *testing.T) {
	program := optimize("[->>+<]")
	utils.AssertEqual(t, len(program), 6)
	utils.AssertEqual(t, program[0].Op, bf.LoopStart)
	utils.AssertEqual(t, program[5].Op, bf.LoopEnd)
}

func TestOptimize_MoveNeedsUnitArithmetic(t *testing.T) {
	utils.AssertEqual(t, len(optimize("[->++<]")), 6)
	utils.AssertEqual(t, len(optimize("[-->+<]")), 6)
}

func TestOptimize_KeepsSurroundingCommands(t *testing.T) {
	expected := bf.Program{
		{Op: bf.Increment, N: 3},
		{Op: bf.MoveRight, N: 1},
		{Op: bf.Right, N: 1},
		{Op: bf.Output},
		{Op: bf.Clear},
		{Op: bf.ScanLeft, N: 1},
	}
	utils.AssertDeepEqual(t, expected, optimize("+++[->+<]>.[-][<]"))
}

func TestOptimize_SinglePass(t *testing.T) {
	// the outer loop becomes [clear] but is not folded again
	expected := bf.Program{
		{Op: bf.LoopStart},
		{Op: bf.Clear},
		{Op: bf.LoopEnd},
	}
	utils.AssertDeepEqual(t, expected, optimize("[[-]]"))
}

func TestOptimize_NoIdiomRoundTrip(t *testing.T) {
	sources := []string{
		"",
		"+++>>--<.,",
		"++[>+<-]",
		"[[>+<]>-]",
		"[->+>+<<]",
		"[--->+<]>.",
	}
	for _, source := range sources {
		parsed := bf.Parse(source)
		utils.AssertDeepEqual(t, parsed, bf.Optimize(parsed))
	}
}

func TestOptimize_TruncatedWindow(t *testing.T) {
	// idioms cut short by the end of the program are left alone
	for _, source := range []string{"[", "[-", "[->", "[->+", "[->+<"} {
		parsed := bf.Parse(source)
		utils.AssertDeepEqual(t, parsed, bf.Optimize(parsed))
	}
}

func TestOptimize_RenderedProgramIsEquivalent(t *testing.T) {
	source := "++++[->>+<<]>>[-<+>]<[>]+[<]"
	optimized := optimize(source)
	utils.AssertEqual(t, optimized.String(), source)
}

// randomProgram builds a bracket balanced program biased towards the idioms
// the optimizer rewrites.
func randomProgram(rng *rand.Rand, depth int) string {
	atoms := []string{
		"+", "-", ">", "<", ".", ",", "++", "--", ">>", "<<",
		"[-]", "[+]", "[>]", "[<]", "[>>]", "[<<]",
		"[->+<]", "[-<+>]", "[->>+<<]", "[-<<+>>]", "[->+<<]",
	}
	var sb strings.Builder
	n := 1 + rng.Intn(12)
	for range n {
		if depth < 3 && rng.Intn(6) == 0 {
			sb.WriteString("[" + randomProgram(rng, depth+1) + "-]")
			continue
		}
		sb.WriteString(atoms[rng.Intn(len(atoms))])
	}
	return sb.String()
}

func run(t *testing.T, program bf.Program, input string) (string, error) {
	t.Helper()
	machine, err := bf.NewMachine(program, bf.NewTape(64))
	utils.AssertNoError(t, err)
	machine.MaxSteps = 200_000
	return machine.Execute(context.Background(), bf.NewInputBuffer(input))
}

func TestOptimize_Equivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	compared := 0
	for range 500 {
		source := "+++++[>+++<-]>[>++<-]" + randomProgram(rng, 0)
		input := "\x05hello\x03"
		plain, errPlain := run(t, bf.Parse(source), input)
		fast, errFast := run(t, optimize(source), input)
		if errPlain != nil || errFast != nil {
			// step budgets differ between the two
			continue
		}
		if plain != fast {
			t.Fatalf("output differs for %q: %q != %q", source, plain, fast)
		}
		compared++
	}
	utils.Assert(t, compared > 50, "too few programs terminated")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MarcinKonowalczyk/bfvm/cli"
	bf_shim "github.com/MarcinKonowalczyk/bfvm/shim"

	"github.com/containerd/containerd/v2/pkg/shim"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Maybe hijack the shim to run as brainfuck interpreter
	brainfuck, args := isBrainfuckArg(os.Args[1:])

	if brainfuck {
		cli.Main(ctx, os.Args[0]+" "+bf_shim.BrainfuckArg, args)
	} else {
		shim.Run(ctx, bf_shim.NewManager(bf_shim.RuntimeName))
	}
}

// isBrainfuckArg removes the first "brainfuck" argument, reporting whether
// there was one.
func isBrainfuckArg(args []string) (bool, []string) {
	for i, arg := range args {
		if arg == bf_shim.BrainfuckArg {
			rest := make([]string, 0, len(args)-1)
			rest = append(rest, args[:i]...)
			return true, append(rest, args[i+1:]...)
		}
	}
	return false, args
}

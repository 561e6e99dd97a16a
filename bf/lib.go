package bf

import (
	"context"

	"github.com/containerd/log"
)

type options struct {
	tapeSize int
	maxSteps uint64
}

// Option configures a single execution.
type Option func(*options)

// WithTapeSize sets the number of tape cells. Values below 1 are ignored.
func WithTapeSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.tapeSize = n
		}
	}
}

// WithMaxSteps bounds the steps an execution may take before it fails with
// Timeout. Zero means no bound.
func WithMaxSteps(n uint64) Option {
	return func(o *options) { o.maxSteps = n }
}

// Execute parses, optimizes and runs source with the given input, and
// returns the produced output.
func Execute(source, input string, opts ...Option) (string, error) {
	return ExecuteContext(context.Background(), source, input, opts...)
}

// ExecuteContext is Execute with a context. The run fails with Timeout once
// ctx is done.
func ExecuteContext(ctx context.Context, source, input string, opts ...Option) (string, error) {
	o := options{tapeSize: TapeSize}
	for _, opt := range opts {
		opt(&o)
	}

	parsed := Parse(source)
	program := Optimize(parsed)
	logger := log.G(ctx).WithFields(log.Fields{
		"commands":  len(parsed),
		"optimized": len(program),
		"tape":      o.tapeSize,
	})

	machine, err := NewMachine(program, NewTape(o.tapeSize))
	if err != nil {
		logger.WithError(err).Debug("invalid program")
		return "", err
	}
	machine.MaxSteps = o.maxSteps

	in := NewInputBuffer(input)
	output, err := machine.Execute(ctx, in)
	logger = logger.WithFields(log.Fields{
		"steps":  machine.Steps(),
		"unread": in.Remaining(),
	})
	if err != nil {
		logger.WithError(err).Debug("execution failed")
		return "", err
	}
	logger.Debug("execution finished")
	return output, nil
}

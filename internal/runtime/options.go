package runtime

import (
	"io"
	"os"
)

type (
	MessengerOption func(*MessengerCtx)

	AdminOption func(*AdminCtx)
)

func WithMessengerTermination(ch chan os.Signal) MessengerOption {
	return func(ctx *MessengerCtx) {
		ctx.shutdownChannel = ch
	}
}

// WithConsoleIO replaces standard input and output of the console.
func WithConsoleIO(in io.Reader, out io.Writer) MessengerOption {
	return func(ctx *MessengerCtx) {
		ctx.in = in
		ctx.out = out
	}
}

func WithReadyNotification() MessengerOption {
	return func(ctx *MessengerCtx) {
		ctx.ready = make(chan struct{})
	}
}

func WithAdminOutput(out io.Writer) AdminOption {
	return func(ctx *AdminCtx) {
		ctx.out = out
	}
}

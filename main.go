package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/t-voip/gwcheck/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	os.Exit(cmd.ExitCode())
}

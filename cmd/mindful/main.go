// Command mindful is a personal trading journal with an AI coach.
package main

import (
	"context"
	"fmt"
	"os"

	"mindful-trader/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

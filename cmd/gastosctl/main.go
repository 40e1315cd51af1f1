package main

import (
	"context"
	"fmt"
	"os"

	"gastos/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	if err := cli.Execute(context.Background(), cfg, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

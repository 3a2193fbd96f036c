// Package main is the sqlstage CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/sqlstage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

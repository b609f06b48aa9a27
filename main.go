package main

import (
	"fmt"
	"os"

	"github.com/sushantshinde2401/bookkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

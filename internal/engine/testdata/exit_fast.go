package main

import (
	"fmt"
	"os"
)

// Exits immediately with an error, standing in for a runtime that cannot
// start at all.
func main() {
	fmt.Fprintln(os.Stderr, "fatal: model file corrupt")
	os.Exit(1)
}

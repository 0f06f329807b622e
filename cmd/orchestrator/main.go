package main

import (
	"fmt"
	"os"
)

// version is set during build time
var version = "dev"

func main() {
	SetVersion(version)

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

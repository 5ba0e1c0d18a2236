// Package main provides trailctl, the trailhub operator CLI.
package main

import (
	"fmt"
	"os"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trailctl:", err)
		os.Exit(1)
	}
}

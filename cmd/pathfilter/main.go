// Package main is the entry point for the pathfilter CLI.
package main

import (
	"github.com/justrnr500/pathfilter/internal/cmd"
)

func main() {
	cmd.Execute()
}

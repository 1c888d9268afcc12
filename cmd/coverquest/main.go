// Package main is the single-binary entrypoint for the CoverQuest engine.
package main

import "github.com/coverquest/coverquest/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

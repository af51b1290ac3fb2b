// Package main is the single-binary entrypoint for ascend.
package main

import "github.com/ascend-hq/ascend/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

// Package main is the single-binary entrypoint for TouchGrass.
// One binary runs the reminder daemon and controls it.
package main

import "github.com/KayraNafi/TouchGrass/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

// Package main is the kotae CLI entry point.
package main

import "os"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

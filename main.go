// Package main is the entry point for the wasmut CLI.
package main

import "wasmut.dev/pkg/wasmut/cmd/wasmut"

func main() {
	wasmut.Execute()
}

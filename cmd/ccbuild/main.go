package main

import "github.com/goplus/ccbuild/cmd/ccbuild/internal"

func main() {
	internal.Execute()
}

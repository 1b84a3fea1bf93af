package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) > 3 {
		os.Exit(2) // want `os.Exit in main must only forward run\(\)`
	}
	defer fmt.Println("bye")
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		os.Exit(1) // want `os.Exit outside main`
	}
	return 0
}

type cmd struct{}

func (cmd) main() {
	os.Exit(0) // want `os.Exit outside main`
}

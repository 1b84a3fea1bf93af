package b

import "os"

func Fail() {
	os.Exit(1) // want `os.Exit outside main`
}

func main() {
	os.Exit(run()) // want `os.Exit outside main`
}

func run() int { return 0 }

func Exit(code int) {}

func Local() {
	Exit(1)
}

package main

import (
	"os"

	"refactorimports/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}

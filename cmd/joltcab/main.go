package main

import "github.com/joltcab/console/internal/cli"

func main() {
	cli.Execute()
}

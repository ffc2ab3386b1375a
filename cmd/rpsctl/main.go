package main

import "github.com/mcoot/rpsarbiter/internal/cli"

func main() {
	cli.Execute()
}

package main

import "go.boson/internal/cli"

func main() {
	cli.Execute()
}

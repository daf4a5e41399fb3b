package main

import "obsctl/internal/cli"

func main() {
	cli.Execute()
}

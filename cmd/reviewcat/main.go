package main

import "reviewcat/internal/cli"

func main() {
	cli.Execute()
}

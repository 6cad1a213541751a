package main

import "stof/internal/cli"

func main() {
	cli.Execute()
}

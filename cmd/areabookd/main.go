package main

import "github.com/zoobzio/areabook/internal/cli"

func main() {
	cli.Execute()
}

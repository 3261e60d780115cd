package main

import "github.com/screenwatch/screenwatch/internal/cli"

func main() {
	cli.Execute()
}

package main

import "mailassist/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/vietddude/soqlguard/internal/cli"

func main() {
	cli.Execute()
}

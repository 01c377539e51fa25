package main

import "github.com/vietddude/noor/internal/cli"

func main() {
	cli.Execute()
}

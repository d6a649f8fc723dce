package main

import "github.com/vietddude/requester/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/mvp-joe/cdoc/internal/cli"

func main() {
	cli.Execute()
}

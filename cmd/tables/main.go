package main

import "github.com/victornm/tables/internal/cli"

func main() {
	cli.Execute()
}

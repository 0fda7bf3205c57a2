package main

import "github.com/nasmgo/core/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

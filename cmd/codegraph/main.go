package main

import "codegraph/cmd/codegraph/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/pipebench/pipebench/cmd/pipebench/cmd"

func main() {
	cmd.Execute()
}

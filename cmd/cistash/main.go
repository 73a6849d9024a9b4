package main

import "github.com/cistash/cistash/cmd/cistash/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	"fmt"

	"sfneuman.com/nearmiss/cmd"
)

// main entry point to the training binary
func main() {
	rootCommand := cmd.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
	}
}

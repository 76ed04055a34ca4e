package main

import (
	"github.com/sebiscope/sebiscope/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/storewise/snapvault/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/gwarden/gwarden/internal/cmd"
)

func main() {
	cmd.Execute()
}

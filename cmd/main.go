package main

import (
	"github.com/itzana/itzanago/internal/cli"
)

func main() {
	cli.Run()
}

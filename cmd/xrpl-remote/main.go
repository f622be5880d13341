package main

import (
	"github.com/LeJamon/goxrpl-remote/internal/cli"
)

func main() {
	cli.Execute()
}

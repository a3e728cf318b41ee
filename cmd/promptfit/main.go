package main

import (
	"github.com/promptfit/promptfit/cmd/cli"
)

func main() {
	cli.Execute()
}

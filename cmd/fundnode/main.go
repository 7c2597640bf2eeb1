package main

import (
	"github.com/commonfund/commonfund/cmd/fundnode/cmd"
)

func main() {
	cmd.Execute()
}

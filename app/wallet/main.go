package main

import (
	"github.com/tinychain/tinychain/app/wallet/cmd"
)

func main() {
	cmd.Execute()
}

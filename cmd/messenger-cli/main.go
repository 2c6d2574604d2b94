package main

import "github.com/nfrund/messenger/cmd/messenger-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/narthex/vouch/cmd/vouch/cmd"

func main() {
	cmd.Execute()
}

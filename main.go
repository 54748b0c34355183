package main

import "github.com/basecall-labs/sigseek/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Yates-Labs/storyteller/cmd"

func main() {
	cmd.Execute()
}

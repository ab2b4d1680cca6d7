package main

import "github.com/lockveil/lockveil/cmd/lockveil/commands"

func main() {
	commands.Execute()
}

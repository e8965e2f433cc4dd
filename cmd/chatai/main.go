// Command chatai is a terminal client for a streaming chat API.
package main

import "github.com/diogo/chatai/internal/commands"

func main() {
	commands.Execute()
}

// Command manualqa is a terminal client for the washer/dryer manual Q&A service.
package main

import "github.com/diogo/manualqa/internal/commands"

func main() {
	commands.Execute()
}

package main

import "github.com/sergev/td0scan/cmd"

func main() {
	cmd.Execute()
}

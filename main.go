package main

import "github.com/ElementGang/Nineveh/cmd"

func main() {
	cmd.Execute()
}

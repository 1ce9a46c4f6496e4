package main

import "ncmbridge/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/serpro69/gh-backport/cmd"

func main() {
	cmd.Execute()
}

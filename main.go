package main

import "github.com/quantfish/crossarb/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/jfmyers9/naviscribe/cmd"

func main() {
	cmd.Execute()
}

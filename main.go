package main

import "github.com/weatherlogger/apiserver/cmd"

func main() {
	cmd.Execute()
}

package main

import "medibot/cmd"

func main() {
	cmd.Execute()
}

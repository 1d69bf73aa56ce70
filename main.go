package main

import "taskweave/cmd"

func main() {
	cmd.Execute()
}

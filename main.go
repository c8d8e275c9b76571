package main

import "github.com/port-experimental/repo-team-mapper/cmd"

func main() {
	cmd.Execute()
}

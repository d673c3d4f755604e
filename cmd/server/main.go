package main

import "github.com/sourcemeter/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}

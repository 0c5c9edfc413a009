package main

import "github.com/esm-tools/cadence/cmd"

func main() {
	cmd.Execute()
}

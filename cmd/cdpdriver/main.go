package main

import "github.com/liuxd6825/cdpdriver/cmd"

func main() {
	cmd.Execute()
}

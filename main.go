package main

import "github.com/kinosync/kinosync/cmd"

func main() {
	cmd.Execute()
}

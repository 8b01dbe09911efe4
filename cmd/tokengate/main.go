package main

import "tokengate/cmd/tokengate/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/atomicobject/vaultmcp/cmd"

func main() {
	cmd.Execute()
}

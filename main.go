package main

import "muster/cmd/x402orch"

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	x402orch.SetVersion(version)
	x402orch.Execute()
}

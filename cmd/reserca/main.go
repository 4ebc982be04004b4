package main

import "github.com/reserca-labs/reserca-cli/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}

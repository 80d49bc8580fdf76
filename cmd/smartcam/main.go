package main

import "github.com/eleven-am/smart-selfie/internal/cli"

func main() {
	cli.Execute()
}

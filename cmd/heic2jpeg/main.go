package main

import "github.com/artemshloyda/heic2jpeg/internal/cli"

func main() {
	cli.Execute()
}

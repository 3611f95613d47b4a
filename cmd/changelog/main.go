package main

import "github.com/Suhaibinator/SChangelog/internal/cli"

func main() {
	cli.Execute()
}

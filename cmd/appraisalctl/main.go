package main

import "appraisal/internal/app/cli"

func main() {
	cli.Execute()
}

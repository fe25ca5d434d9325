package main

import "github.com/stanrainier/stan-finance-tracker/internal/cli"

func main() {
	cli.Execute()
}

package main

import (
	"price-scout/internal/cli"
)

func main() {
	cli.Execute()
}

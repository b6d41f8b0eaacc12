package main

import (
	"context"

	"churchinventory/cmd"
)

func main() {
	cmd.Execute(context.Background())
}

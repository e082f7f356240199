package main

import (
	"context"
	"os"
)

func main() {
	if err := NewRoot().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

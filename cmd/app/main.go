package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(defaultInjectors())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ethticker:", err)
		os.Exit(1)
	}
}

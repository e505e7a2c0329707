package main

import (
	"fmt"
	"os"

	"github.com/rony4d/go-pool-core/cmd/pool/launcher"
)

func main() {
	if err := launcher.Launch(os.Args); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

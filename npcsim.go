package main

import (
	"fmt"
	"os"

	"github.com/wonst719/exult-sub000/pkg/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Print("error: ")
		cmd.RenderError(os.Stdout, err)
		fmt.Println()
		os.Exit(1)
	}
}

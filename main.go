package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kilianp07/housepredict/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrPredictionFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

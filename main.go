package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/hrconsole/internal/hrconsolecli"
)

func main() {
	if err := hrconsolecli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, hrconsolecli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, hrconsolecli.Usage)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

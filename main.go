package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The failure was already printed as a result document.
		if errors.Is(err, errPassFailed) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}

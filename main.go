package main

import (
	"os"

	"github.com/wfunc/gombiful/cmd"
	"github.com/wfunc/gombiful/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.Log.Errorf("gombiful: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/BearBump/DeliveryMonitor/internal/logger"
)

func main() {
	defer logger.Sync()
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}

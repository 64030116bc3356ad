// Command tenderlistd runs the tender processing daemon: queue polling,
// pipeline stages, and the IPC socket for the tenderlist CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"tenderlist/internal/config"
	"tenderlist/internal/daemonrun"
)

func main() {
	var configPath string
	var logLevel string
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "override configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "no config file at %s, using defaults\n", resolvedPath)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: logLevel}); err != nil {
		log.Fatalf("tenderlistd: %v", err)
	}
}

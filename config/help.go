package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Taxi dispatch service

Usage:
  dispatch [-config-path <file>]
  dispatch -help

Options:
  -config-path   Path to the YAML config file (default "config.yaml")
  -help          Show this message

Every setting can be overridden with an environment variable named
TAXI_<SECTION>__<KEY>, for example:
  TAXI_DATABASE__HOST=db.internal
  TAXI_DISPATCH__FRESHNESS_WINDOW=45s
  TAXI_RABBITMQ__ENABLED=true
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

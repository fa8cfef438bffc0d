package main

import (
	"os"

	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/server"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	os.Exit(server.Main(config.DomainLocation, Version))
}

// oasmock CLI - mock API server generated from OpenAPI documents.
package main

import (
	"github.com/websublime/vite-open-api-server-sub004/pkg/cli"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if Version != "dev" {
		cli.Version = Version
		cli.Commit = Commit
		cli.BuildDate = BuildDate
	}
	cli.Execute()
}

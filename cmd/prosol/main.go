package main

import "github.com/seqforge/prosol/internal/cmd"

// Build metadata, stamped via -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	cmd.Execute()
}

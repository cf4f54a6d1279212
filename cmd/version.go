package cmd

var (
	version   = "0.4.0"
	commit    = "unknown"
	buildDate = "unknown"
)

// versionTemplate is printed for -V/--version.
var versionTemplate = `dbxup v{{.Version}}
Commit: ` + commit + `
Built: ` + buildDate + `
`

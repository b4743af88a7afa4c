// Package appfs embeds the files the binaries need at runtime: SQL migrations and templates.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS

// Package web embeds the static browser client.
package web

import "embed"

//go:embed static
var Assets embed.FS

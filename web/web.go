// Package web embeds the widget's HTML templates.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS

// Package configs embeds the configuration template written by
// `docsearch config init`.
package configs

import _ "embed"

// UserConfigTemplate is written to $XDG_CONFIG_HOME/docsearch/config.yaml.
// Its active values match config.NewConfig; the rest is commented out.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

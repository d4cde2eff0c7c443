// Package configs embeds the annotated configuration template written by
// `loadermcp config init`.
//
// Keys and defaults mirror internal/config NewConfig(); keep them in sync.
package configs

import _ "embed"

// UserConfigTemplate is written to ~/.config/loadermcp/config.yaml.
// Every setting is present with its default and a short explanation.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

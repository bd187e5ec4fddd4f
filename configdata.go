// Package nvimcord provides embedded assets for the nvimcord binary.
//
// The root package exists to embed [config.default.toml] and the language
// table so the binary runs without any files next to it.
package nvimcord

import _ "embed"

// DefaultConfigTOML holds config.default.toml. `nvimcord config init` copies
// it to the data directory.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

// LanguagesJSON holds data/languages.json, which maps filetypes and file
// names to Discord asset keys.
//
//go:embed data/languages.json
var LanguagesJSON []byte

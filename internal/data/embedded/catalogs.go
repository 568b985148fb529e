// Package embedded provides access to embedded model catalog data files.
package embedded

import _ "embed"

// GeminiCatalogData contains the embedded Gemini model catalog YAML data.
//
//go:embed gemini.yaml
var GeminiCatalogData []byte

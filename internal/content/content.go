// Package content bundles the demo world: the world file, string tables,
// Lua kinds and scenes.
package content

import "embed"

//go:embed world.yaml strings.*.yaml kinds scenes
var FS embed.FS

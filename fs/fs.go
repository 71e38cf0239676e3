package appfs

import "embed"

// FS holds assets baked into the binary: SQL migrations, email templates
// and the common-password denylist.
//go:embed migrations assets
var FS embed.FS

// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

// FS holds the SQL migrations, email templates, branding presets and password lists.
//
//go:embed migrations/*.sql templates/email/* branding/*.yaml passwords/*.txt
var FS embed.FS

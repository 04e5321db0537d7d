// Package defaults provides embedded copies of the default
// configuration and persona placeholder files for the emissary init
// subcommand.
package defaults

import _ "embed"

//go:embed config.example.yaml
var ConfigYAML []byte

//go:embed summary.example.txt
var SummaryTXT []byte

//go:embed work_experience.example.txt
var WorkExperienceTXT []byte

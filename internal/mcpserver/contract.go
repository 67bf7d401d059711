package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/myfview/internal/negotiate"
)

const contractIntro = `# myfview Output Formats

A myfile is served at ` + "`//<name>`" + `. An empty name (` + "`//`" + `) serves the
record named after the request host. The format is chosen by, in order:

1. ` + "`?type=<alias>`" + ` (an unknown alias selects json)
2. the first query key that is an alias, e.g. ` + "`?yaml`" + `
3. a ` + "`curl/`" + ` User-Agent selects cli
4. the Accept header (text/html or application/json)
5. json

## Aliases

`

const contractParams = `
## Query parameters

- ` + "`dark`" + ` or ` + "`theme=dark`" + `: dark mode hint for html
- ` + "`nc`" + ` or ` + "`nocolor`" + `: no ANSI colours in cli output
- ` + "`nd`" + ` or ` + "`forcerender`" + `: serve yaml and toml as text/plain

Private fields are removed from json, yaml and toml output only.
`

// FormatsContract describes the output formats and their aliases.
func FormatsContract() string {
	var b strings.Builder
	b.WriteString(contractIntro)
	table := negotiate.Aliases()
	for _, f := range []negotiate.Format{negotiate.HTML, negotiate.CLI, negotiate.JSON, negotiate.YAML, negotiate.TOML} {
		fmt.Fprintf(&b, "- **%s**: %s\n", f, strings.Join(table[f], ", "))
	}
	b.WriteString(contractParams)
	return b.String()
}

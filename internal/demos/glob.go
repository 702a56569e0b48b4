package demos

import "strings"

// AllPattern selects the whole demo root.
const AllPattern = "**"

// Pattern renders the doublestar pattern (relative to the demo root, slash
// separated) selecting the given demos plus the reserved shared-config file.
// With all set the whole root is selected.
func Pattern(demos []Demo, reserved string, all bool) string {
	if all || len(demos) == 0 {
		return AllPattern
	}
	alts := make([]string, 0, len(demos)+1)
	if reserved != "" {
		alts = append(alts, escapeMeta(reserved))
	}
	for _, d := range demos {
		alts = append(alts, escapeMeta(d.Name)+"/**")
	}
	return "{" + strings.Join(alts, ",") + "}"
}

var metaEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`, `,`, `\,`,
)

func escapeMeta(name string) string { return metaEscaper.Replace(name) }

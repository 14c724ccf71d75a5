// This file is the writing counterpart of `configparser.py`: just enough of
// the INI dialect to emit entry_points.txt.

package python

import (
	"fmt"
	"sort"
	"strings"
)

// WriteINI renders sections in the dialect entry_points.txt uses: sections
// and keys sorted, "name=value" rows without spaces, a blank line after each
// section.  The output is deterministic for a given input.
func WriteINI(sections Config) []byte {
	sectionNames := make([]string, 0, len(sections))
	for name := range sections {
		sectionNames = append(sectionNames, name)
	}
	sort.Strings(sectionNames)

	var ret strings.Builder
	for _, sectionName := range sectionNames {
		section := sections[sectionName]
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&ret, "[%s]\n", sectionName)
		keys := make([]string, 0, len(section))
		for key := range section {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&ret, "%s=%s\n", key, section[key])
		}
		ret.WriteString("\n")
	}
	return []byte(ret.String())
}

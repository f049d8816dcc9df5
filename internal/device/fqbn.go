package device

import "strings"

// CoreIDFromFQBN derives the owning core id from a fully-qualified board
// name: the first two colon-delimited segments, or the whole FQBN when it
// has fewer than two.
func CoreIDFromFQBN(fqbn string) string {
	parts := strings.SplitN(fqbn, ":", 3)
	if len(parts) < 2 {
		return fqbn
	}
	return parts[0] + ":" + parts[1]
}

package source

import "regexp"

// includeRe matches an include directive keyword at the start of a line,
// tolerating a missing '#' and the common 'i' -> '1'/'l' misreading.
var includeRe = regexp.MustCompile(`(?i)^\s*#?\s*[i1l]nclude\b`)

// IncludeEnd returns the byte offset just past the include keyword when line
// is an include directive, or -1 otherwise.
func IncludeEnd(line string) int {
	loc := includeRe.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[1]
}

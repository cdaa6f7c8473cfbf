// Package ansiutil strips ANSI escape sequences from terminal output and
// inspects SGR (Select Graphic Rendition) parameter lists for color codes.
package ansiutil

import (
	"regexp"
	"strconv"
	"strings"
)

// ansiEscape matches CSI sequences (ESC '[' params final-byte) as well as the
// narrower set of OSC/other escape forms PTY children commonly emit.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07|\x1b[PX^_].*?\x1b\\|\x1b[=>]`)

// sgrSequence matches a single CSI SGR sequence, capturing its parameter list.
var sgrSequence = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// Strip removes ANSI escape sequences from s, leaving plain text suitable for
// pattern matching.
func Strip(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// redParams is the set of SGR parameters that select a red foreground.
var redParams = map[int]bool{
	31: true, // red
	91: true, // bright red
}

// ContainsRed reports whether raw (un-stripped) output contains an SGR
// sequence whose parameter list selects red or bright-red foreground color.
// Parameter lists are split on ';' so mixed sequences like "0;31;42" or
// "1;31" match, while a single three-digit parameter like "131" must not.
func ContainsRed(raw string) bool {
	for _, m := range sgrSequence.FindAllStringSubmatch(raw, -1) {
		for _, p := range ParseSGRParams(m[1]) {
			if redParams[p] {
				return true
			}
		}
	}
	return false
}

// ParseSGRParams splits a raw SGR parameter string ("0;31;42") into its
// integer components, ignoring any that fail to parse (empty fields between
// consecutive semicolons are treated as 0, matching terminal convention).
func ParseSGRParams(params string) []int {
	if params == "" {
		return nil
	}
	fields := strings.Split(params, ";")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			out = append(out, 0)
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

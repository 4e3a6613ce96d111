package toolinfer

import (
	"regexp"
	"strings"
)

// startScript runs the package itself and is never inspected
const startScript = "start"

var (
	commandSeparators = regexp.MustCompile(`&&|\|\||;`)
	envAssignment     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
)

const localBin = "node_modules/.bin/"

// Binaries returns the executable named by each command of a script line,
// in order. Commands are separated by "&&", "||" and ";". Leading
// environment assignments and npx are skipped.
func Binaries(script string) []string {
	var out []string
	for _, command := range commandSeparators.Split(script, -1) {
		if bin := commandBinary(command); bin != "" {
			out = append(out, bin)
		}
	}
	return out
}

func commandBinary(command string) string {
	words := strings.Fields(command)
	npx := false
	for _, w := range words {
		switch {
		case envAssignment.MatchString(w):
			continue
		case w == "npx" && !npx:
			npx = true
			continue
		case npx && strings.HasPrefix(w, "-"):
			continue
		}
		if i := strings.Index(w, localBin); i >= 0 {
			w = w[i+len(localBin):]
		}
		return w
	}
	return ""
}

package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseUID(value string) (uint32, error) {
	uid, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid uid: %s", value)
	}
	return uint32(uid), nil
}

// parseIndices reads a comma separated list of 1-based item numbers into
// a set of 0-based indices.
func parseIndices(value string, count int) (map[int]bool, error) {
	out := map[int]bool{}
	for _, part := range splitList(value) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > count {
			return nil, fmt.Errorf("invalid item number %q (have %d items)", part, count)
		}
		out[n-1] = true
	}
	return out, nil
}

// promptSecret reads a secret from the terminal without echo.
func promptSecret(errOut io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s required; pass it as a flag when stdin is not a terminal", strings.ToLower(label))
	}
	fmt.Fprintf(errOut, "%s: ", label)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(errOut)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

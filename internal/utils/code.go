package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeDigits is the zero-padded width of the numeric part of a sequential code.
const CodeDigits = 5

// FormatCode renders prefix + n zero padded to CodeDigits, e.g. RS-00042.
func FormatCode(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, CodeDigits, n)
}

// ParseCode extracts the numeric part of a code carrying prefix.
func ParseCode(prefix, code string) (int, error) {
	if !strings.HasPrefix(code, prefix) {
		return 0, fmt.Errorf("code %q does not start with %q", code, prefix)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("code %q has no numeric suffix", code)
	}
	return n, nil
}

// NextCode returns the code following maxCode. An empty maxCode starts the
// sequence at 1.
func NextCode(prefix, maxCode string) (string, error) {
	if maxCode == "" {
		return FormatCode(prefix, 1), nil
	}
	n, err := ParseCode(prefix, maxCode)
	if err != nil {
		return "", err
	}
	return FormatCode(prefix, n+1), nil
}

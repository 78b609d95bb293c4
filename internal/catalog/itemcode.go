package catalog

import (
	"fmt"
	"strconv"
)

// Item codes are 4-digit zero-padded decimal strings, unique within
// one user's catalog. A single namespace is used for all of them.

func FormatItemCode(n int) string {
	return fmt.Sprintf("%04d", n)
}

// NextItemCode returns the smallest positive integer not taken by any
// of the existing codes, zero-padded. Codes that do not parse as
// integers are ignored.
func NextItemCode(existing []string) string {
	taken := make(map[int]bool, len(existing))
	for _, code := range existing {
		if n, err := strconv.Atoi(code); err == nil {
			taken[n] = true
		}
	}
	for candidate := 1; ; candidate++ {
		if !taken[candidate] {
			return FormatItemCode(candidate)
		}
	}
}

package schema

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }

func atoiOr(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

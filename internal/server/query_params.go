package server

import (
	"strconv"
	"strings"
)

const maxListLimit = 200

func parseLimit(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return 0, ErrInvalidRequest
	}
	if parsed > maxListLimit {
		parsed = maxListLimit
	}
	return parsed, nil
}

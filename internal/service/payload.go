package service

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodePayload binds an invoice to its buyer and duration.
func EncodePayload(platformID int64, days int) string {
	return fmt.Sprintf("%d|%d", platformID, days)
}

// DecodePayload parses "id|days". It fails unless there is exactly one separator
// and both parts are integers with a positive duration.
func DecodePayload(payload string) (int64, int, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 2 {
		return 0, 0, invalidf("payload %q", payload)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, invalidf("payload owner %q", parts[0])
	}
	days, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || days <= 0 {
		return 0, 0, invalidf("payload days %q", parts[1])
	}
	return id, days, nil
}

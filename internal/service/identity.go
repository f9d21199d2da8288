package service

import (
	"strconv"
	"strings"
)

// Identity is the sender of an inbound event.
type Identity struct {
	ID     int64
	Handle string
}

// Mention renders the identity as @handle, or the numeric id when there is no handle.
func (i Identity) Mention() string {
	if i.Handle != "" {
		return "@" + i.Handle
	}
	return strconv.FormatInt(i.ID, 10)
}

// AdminIdentity is the single configured administrator.
type AdminIdentity struct {
	ID     int64
	Handle string
}

// Matches compares by numeric id or by case-insensitive handle.
func (a AdminIdentity) Matches(who Identity) bool {
	if a.ID != 0 && who.ID == a.ID {
		return true
	}
	want := strings.TrimPrefix(strings.TrimSpace(a.Handle), "@")
	return want != "" && who.Handle != "" && strings.EqualFold(want, who.Handle)
}

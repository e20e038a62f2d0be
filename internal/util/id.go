package util

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NowMillis returns the wall clock as unix milliseconds, the timestamp unit
// shared by events, comments and notifications.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// DayStamp formats a time as the calendar-day key (yyyy-mm-dd) that events
// are grouped under.
func DayStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

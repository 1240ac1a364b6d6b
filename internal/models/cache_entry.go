// internal/models/cache_entry.go
package models

import "time"

// CacheEntry maps a hex fingerprint to a previously produced answer.
type CacheEntry struct {
	Key       string    `json:"key" db:"cache_key"`
	Answer    string    `json:"answer" db:"llm_answer"`
	WrittenAt time.Time `json:"writtenAt" db:"created_at"`
}

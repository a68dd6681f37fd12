// Package results keeps finished upload results readable by upload ID.
//
// The web layer saves every BatchResult under the upload's ID so a client
// that lost the response can fetch it again until the TTL runs out. Redis
// backs the cache when REDIS_URL is set; otherwise results live in memory.
package results

import (
	"context"
	"time"

	"github.com/JonMunkholm/contactload/internal/core"
)

// Entry is one cached upload outcome.
type Entry struct {
	UploadID   string           `json:"uploadId"`
	Source     string           `json:"source"`
	Status     int              `json:"status"`
	Result     core.BatchResult `json:"result"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// Store saves and loads entries. Get returns core.ErrUploadNotFound for an
// unknown or expired ID.
type Store interface {
	Save(ctx context.Context, e Entry) error
	Get(ctx context.Context, uploadID string) (Entry, error)
}

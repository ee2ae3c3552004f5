package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PointID derives a stable point id from chunk provenance. Re-ingesting the
// same content yields the same id, so upserts overwrite instead of
// duplicating.
func PointID(docID, path string, idx int) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s|%s|%d", docID, path, idx))).String()
}

// contentHash is the first 32 hex chars of sha256(s).
func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:32]
}

// NewJobID returns a sortable id: UTC "20060102-150405-" plus 8 hex chars.
func NewJobID(now time.Time) string {
	u := uuid.New()
	return now.UTC().Format("20060102-150405") + "-" + hex.EncodeToString(u[:4])
}

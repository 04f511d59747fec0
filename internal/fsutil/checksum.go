package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ChecksumManager records the content hash of each document as polish last
// read or wrote it. Before every replace the document compares the file on
// disk against this record, so an edit made in another editor between two
// selections is detected instead of overwritten. It is safe for concurrent
// use.
type ChecksumManager struct {
	mu    sync.RWMutex
	store map[string]string
}

// NewChecksumManager returns an empty ChecksumManager.
func NewChecksumManager() *ChecksumManager {
	return &ChecksumManager{store: make(map[string]string)}
}

// Compute returns the hex SHA-256 of a document's bytes.
func (m *ChecksumManager) Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the hash recorded at the last read or write of path. ok is
// false before the document was first opened.
func (m *ChecksumManager) Get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	checksum, ok := m.store[path]
	return checksum, ok
}

// Update records checksum after path was read or written.
func (m *ChecksumManager) Update(path string, checksum string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[path] = checksum
}

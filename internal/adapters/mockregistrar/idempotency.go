package mockregistrar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"regdemo/go-backend/pkg/models"
)

const (
	idempotencyTTL        = 10 * time.Minute
	idempotencyMaxEntries = 1024
)

type replayEntry struct {
	formHash  string
	result    models.RegistrationResult
	createdAt time.Time
}

// replayCache remembers the result of each idempotency key so a retried
// submission gets the original account instead of a duplicate error. It is
// guarded by the registrar mutex.
type replayCache struct {
	entries map[string]replayEntry
}

func newReplayCache() *replayCache {
	return &replayCache{entries: make(map[string]replayEntry)}
}

// get returns the stored result for key. conflict is set when key was used
// with a different form.
func (c *replayCache) get(key, formHash string, now time.Time) (result models.RegistrationResult, found, conflict bool) {
	if key == "" {
		return models.RegistrationResult{}, false, false
	}
	c.prune(now)
	entry, ok := c.entries[key]
	if !ok {
		return models.RegistrationResult{}, false, false
	}
	if entry.formHash != formHash {
		return models.RegistrationResult{}, false, true
	}
	return entry.result, true, false
}

func (c *replayCache) set(key, formHash string, result models.RegistrationResult, now time.Time) {
	if key == "" {
		return
	}
	c.prune(now)
	c.entries[key] = replayEntry{formHash: formHash, result: result, createdAt: now}
	if len(c.entries) <= idempotencyMaxEntries {
		return
	}
	var oldestKey string
	var oldestAt time.Time
	for k, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = entry.createdAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *replayCache) prune(now time.Time) {
	for k, entry := range c.entries {
		if now.Sub(entry.createdAt) > idempotencyTTL {
			delete(c.entries, k)
		}
	}
}

// hashForm fingerprints the identifying fields of form. The password is
// included so a replay with a different password is a conflict.
func hashForm(form models.RegistrationForm) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(form.Username),
		form.Email,
		form.Password,
		form.FirstName,
		form.LastName,
	}, "\x00")))
	return hex.EncodeToString(sum[:])
}

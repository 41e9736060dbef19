// sessioncache caches STS sessions (sts.Credentials)
//
// sessioncache splits Stores (the way cache items are persisted) from Keys
// (the way cache items are looked up/replaced)
package sessioncache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/service/sts"
)

// ExpiryMargin is held back from every entry's lifetime when checking
// validity, so a session that would lapse mid-request is already a miss.
const ExpiryMargin = 10 * time.Second

// Session adds a session name to sts.Credentials
type Session struct {
	Name string
	sts.Credentials
}

func (s *Session) Bytes() ([]byte, error) {
	return json.Marshal(s)
}

// Expired reports whether the session is past, or within ExpiryMargin of,
// its expiration
func (s *Session) Expired() bool {
	if s.Expiration == nil {
		return true
	}
	return s.Expiration.Before(time.Now().Add(ExpiryMargin))
}

// Key is used to compute the cache key for a session
type Key interface {
	Key() string
}

// Store persists sessions between invocations.
//
// Get returns a wrapped keyring.ErrKeyNotFound on a miss and a wrapped
// ErrSessionExpired when the entry exists but is no longer valid. Expired
// entries are never deleted; the next Put simply overwrites them.
type Store interface {
	Get(Key) (*Session, error)
	Put(Key, *Session) error
	Clear(prefix string) (int, error)
}

var ErrSessionExpired = errors.New("session expired")

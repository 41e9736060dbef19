package sessioncache

import (
	"encoding/json"
	"strings"

	"github.com/99designs/keyring"
	log "github.com/sirupsen/logrus"

	"golang.org/x/xerrors"
)

const KeyringItemKey = "session-cache"
const KeyringItemLabel = "aws-session-handler session cache"

type singleKrItemDb struct {
	Sessions map[string]Session
}

// SingleKrItemStore stores all sessions in a single keyring item, for users
// who prefer the OS keychain over a plaintext cache file.
//
// Collapsing all sessions into one item matters on MacOS keychain, where an
// unsigned binary needs a reauth per item after every upgrade.
type SingleKrItemStore struct {
	Keyring keyring.Keyring
}

// getDb gets our item from the keyring and unmarshals it
//
// if the keyring item is not found, returns wrapped keyring.ErrKeyNotFound
func (s *SingleKrItemStore) getDb() (*singleKrItemDb, error) {
	item, err := s.Keyring.Get(KeyringItemKey)
	if err != nil {
		return nil, xerrors.Errorf("failed Keyring.Get(%q): %w", KeyringItemKey, err)
	}

	var unmarshalled singleKrItemDb
	if err := json.Unmarshal(item.Data, &unmarshalled); err != nil {
		return nil, xerrors.Errorf("failed unmarshal for %q: %w", KeyringItemKey, keyring.ErrKeyNotFound)
	}

	return &unmarshalled, nil
}

func (s *SingleKrItemStore) writeDb(db *singleKrItemDb) error {
	data, err := json.Marshal(*db)
	if err != nil {
		return xerrors.Errorf("marshalling db for %q: %w", KeyringItemKey, err)
	}

	item := keyring.Item{
		Key:                         KeyringItemKey,
		Label:                       KeyringItemLabel,
		Data:                        data,
		KeychainNotTrustApplication: false,
	}
	if err := s.Keyring.Set(item); err != nil {
		return xerrors.Errorf("writing db for %q: %w", KeyringItemKey, err)
	}

	return nil
}

// Get loads the db from the keyring, and returns the session at k.Key()
//
// If the keyring item is not found (the db hasn't been written) or the key
// is not found, returns wrapped keyring.ErrKeyNotFound. If the session is
// found, but is expired, returns wrapped ErrSessionExpired.
func (s *SingleKrItemStore) Get(k Key) (*Session, error) {
	keyStr := k.Key()

	currentDb, err := s.getDb()
	if err != nil {
		log.Debugf("cache get `%s`: miss (read error): %s", keyStr, err)
		return nil, err
	}

	session, ok := currentDb.Sessions[keyStr]
	if !ok {
		log.Debugf("cache get `%s`: miss", keyStr)
		return nil, xerrors.Errorf("failed finding session for %q: %w", keyStr, keyring.ErrKeyNotFound)
	}

	if session.Expired() {
		log.Debugf("cache get `%s`: expired", keyStr)
		return nil, xerrors.Errorf("session expired for %q: %w", keyStr, ErrSessionExpired)
	}

	log.Debugf("cache get `%s`: hit", keyStr)
	return &session, nil
}

func (s *SingleKrItemStore) Put(k Key, session *Session) error {
	keyStr := k.Key()

	currentDb, err := s.getDb()
	if err != nil || currentDb.Sessions == nil {
		log.Debugf("cache put: new db")
		currentDb = &singleKrItemDb{
			Sessions: map[string]Session{},
		}
	}

	currentDb.Sessions[keyStr] = *session

	// no check-and-set here: keyring offers no such operation, so racing
	// writers go last-writer-wins just like the file store
	if err := s.writeDb(currentDb); err != nil {
		log.Debugf("cache put `%s`: error (writing): %s", keyStr, err)
		return err
	}

	log.Debugf("cache put `%s`: success", keyStr)
	return nil
}

func (s *SingleKrItemStore) Clear(prefix string) (int, error) {
	currentDb, err := s.getDb()
	if err != nil {
		return 0, nil
	}

	n := 0
	for k := range currentDb.Sessions {
		if strings.HasPrefix(k, prefix) {
			delete(currentDb.Sessions, k)
			n++
		}
	}

	if n == 0 {
		return 0, nil
	}

	if err := s.writeDb(currentDb); err != nil {
		return 0, err
	}

	return n, nil
}

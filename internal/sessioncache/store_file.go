package sessioncache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"golang.org/x/xerrors"
)

const cacheFileName = "AwsSessionHandler.json"

// DefaultCachePath returns ~/.aws/app/cache/AwsSessionHandler.json,
// creating the directory if it doesn't exist yet
func DefaultCachePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".aws", "app", "cache")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, cacheFileName), nil
}

type fileDb struct {
	Sessions map[string]Session
}

// FileStore stores all sessions in a single JSON file on disk.
//
// Reads that fail for any reason (missing file, bad JSON, permissions) are
// reported as misses, so a broken cache never blocks a refresh. Writes go
// through a temp file and rename; concurrent writers race last-writer-wins,
// but a reader never sees a torn file.
type FileStore struct {
	Path string
}

// NewFileStore opens a store at path, or at DefaultCachePath if path is
// empty. A custom path must point into an existing directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		path, err = DefaultCachePath()
		if err != nil {
			return nil, err
		}
	} else {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}
		path = expanded

		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			return nil, xerrors.Errorf("cache directory for %q: %w", path, err)
		}
	}

	return &FileStore{Path: path}, nil
}

// getDb reads and unmarshals the cache file
//
// any failure is a wrapped keyring.ErrKeyNotFound; corruption in particular
// must behave like an empty cache
func (s *FileStore) getDb() (*fileDb, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, xerrors.Errorf("failed reading %q (%v): %w", s.Path, err, keyring.ErrKeyNotFound)
	}

	var db fileDb
	if err := json.Unmarshal(data, &db); err != nil {
		log.Warnf("session cache %s is corrupt, ignoring it: %s", s.Path, err)
		return nil, xerrors.Errorf("failed unmarshal for %q: %w", s.Path, keyring.ErrKeyNotFound)
	}

	return &db, nil
}

func (s *FileStore) writeDb(db *fileDb) error {
	data, err := json.Marshal(db)
	if err != nil {
		return xerrors.Errorf("marshalling db for %q: %w", s.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".*")
	if err != nil {
		return xerrors.Errorf("creating temp file for %q: %w", s.Path, err)
	}
	defer os.Remove(tmp.Name())

	// the file holds secrets
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return xerrors.Errorf("chmod %q: %w", tmp.Name(), err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return xerrors.Errorf("writing %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.Errorf("closing %q: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return xerrors.Errorf("renaming over %q: %w", s.Path, err)
	}

	return nil
}

// Get returns the session stored at k.Key()
//
// If the file is missing, unreadable or corrupt, or the key is absent,
// returns wrapped keyring.ErrKeyNotFound. If the session is found but
// expired, returns wrapped ErrSessionExpired.
func (s *FileStore) Get(k Key) (*Session, error) {
	keyStr := k.Key()

	db, err := s.getDb()
	if err != nil {
		log.Debugf("cache get `%s`: miss (read error): %s", keyStr, err)
		return nil, err
	}

	session, ok := db.Sessions[keyStr]
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

func (s *FileStore) Put(k Key, session *Session) error {
	keyStr := k.Key()

	db, err := s.getDb()
	if err != nil {
		log.Debugf("cache put: new db")
		db = &fileDb{Sessions: map[string]Session{}}
	}
	if db.Sessions == nil {
		db.Sessions = map[string]Session{}
	}

	db.Sessions[keyStr] = *session

	if err := s.writeDb(db); err != nil {
		log.Debugf("cache put `%s`: error (writing): %s", keyStr, err)
		return err
	}

	log.Debugf("cache put `%s`: success", keyStr)
	return nil
}

// Clear removes all sessions whose key starts with prefix and reports how
// many were removed
func (s *FileStore) Clear(prefix string) (int, error) {
	db, err := s.getDb()
	if err != nil {
		// nothing cached, nothing to clear
		return 0, nil
	}

	n := 0
	for k := range db.Sessions {
		if strings.HasPrefix(k, prefix) {
			delete(db.Sessions, k)
			n++
		}
	}

	if n == 0 {
		return 0, nil
	}

	if err := s.writeDb(db); err != nil {
		return 0, err
	}

	return n, nil
}

package sessioncache

import (
	"testing"

	"github.com/99designs/keyring"
)

func TestSingleKrItemStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		return &SingleKrItemStore{
			Keyring: keyring.NewArrayKeyring([]keyring.Item{}),
		}
	})
}

package sessioncache

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/stretchr/testify/assert"

	"golang.org/x/xerrors"
)

var theDistantFuture = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
var theDistantPast = time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)

type fixedKey struct {
	v string
}

func (k *fixedKey) Key() string {
	return k.v
}

// testStore runs the behavior every Store implementation must share
func testStore(t *testing.T, storeFactory func(t *testing.T) Store) {
	t.Run("put-get", func(t *testing.T) {
		st := storeFactory(t)
		sess := Session{
			Name: "put-get",
			Credentials: sts.Credentials{
				// avoid expiration
				Expiration: &theDistantFuture,
			},
		}
		key := fixedKey{"put-get"}

		err := st.Put(&key, &sess)
		if err != nil {
			t.Fatalf("error on put: %s", err)
		}

		got, err := st.Get(&key)
		if err != nil {
			t.Fatalf("error on get: %s", err)
		}
		assert.Equal(t, sess, *got)
	})

	t.Run("get missing returns ErrKeyNotFound", func(t *testing.T) {
		st := storeFactory(t)

		_, err := st.Get(&fixedKey{"never-written"})
		if !xerrors.Is(err, keyring.ErrKeyNotFound) {
			t.Fatalf("expected get err to be ErrKeyNotFound; is %s", err)
		}
	})

	t.Run("get expired returns ErrSessionExpired", func(t *testing.T) {
		st := storeFactory(t)
		sess := Session{
			Name: "expired",
			Credentials: sts.Credentials{
				Expiration: &theDistantPast,
			},
		}
		key := fixedKey{"expired"}

		err := st.Put(&key, &sess)
		if err != nil {
			t.Fatalf("error on put: %s", err)
		}

		_, err = st.Get(&key)
		if !xerrors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected get err to be ErrSessionExpired; is %s", err)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		st := storeFactory(t)
		key := fixedKey{"replace"}

		first := Session{Name: "first", Credentials: sts.Credentials{Expiration: &theDistantFuture}}
		second := Session{Name: "second", Credentials: sts.Credentials{Expiration: &theDistantFuture}}

		assert.NoError(t, st.Put(&key, &first))
		assert.NoError(t, st.Put(&key, &second))

		got, err := st.Get(&key)
		if err != nil {
			t.Fatalf("error on get: %s", err)
		}
		assert.Equal(t, "second", got.Name)
	})

	t.Run("clear removes matching prefix", func(t *testing.T) {
		st := storeFactory(t)
		sess := Session{Name: "clear", Credentials: sts.Credentials{Expiration: &theDistantFuture}}

		assert.NoError(t, st.Put(&fixedKey{"dev session (aa)"}, &sess))
		assert.NoError(t, st.Put(&fixedKey{"dev role (bb)"}, &sess))
		assert.NoError(t, st.Put(&fixedKey{"prod role (cc)"}, &sess))

		n, err := st.Clear("dev ")
		assert.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = st.Get(&fixedKey{"dev role (bb)"})
		assert.True(t, xerrors.Is(err, keyring.ErrKeyNotFound))

		_, err = st.Get(&fixedKey{"prod role (cc)"})
		assert.NoError(t, err)
	})
}

package lib

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/MarioVerbelen/aws-session-handler/internal/sessioncache"
)

type fakeSTS struct {
	stsiface.STSAPI

	getSessionTokenCalls int
	assumeRoleCalls      int
	err                  error
}

func (f *fakeSTS) GetSessionToken(in *sts.GetSessionTokenInput) (*sts.GetSessionTokenOutput, error) {
	f.getSessionTokenCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetSessionTokenOutput{
		Credentials: &sts.Credentials{
			AccessKeyId:     aws.String("ASIALONGTOKEN0000001"),
			SecretAccessKey: aws.String("long-secret"),
			SessionToken:    aws.String("long-token"),
			Expiration:      aws.Time(time.Now().Add(12 * time.Hour)),
		},
	}, nil
}

func (f *fakeSTS) AssumeRole(in *sts.AssumeRoleInput) (*sts.AssumeRoleOutput, error) {
	f.assumeRoleCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.AssumeRoleOutput{
		Credentials: &sts.Credentials{
			AccessKeyId:     aws.String("ASIASHORTROLE0000001"),
			SecretAccessKey: aws.String("short-secret"),
			SessionToken:    aws.String("short-token"),
			Expiration:      aws.Time(time.Now().Add(15 * time.Minute)),
		},
	}, nil
}

func testProfiles() Profiles {
	return Profiles{
		"default": {"region": "eu-west-1"},
		"dev":     {"region": "us-east-1"},
		"admin": {
			"role_arn":       "arn:aws:iam::123456789012:role/admin",
			"mfa_serial":     "arn:aws:iam::123456789012:mfa/someone",
			"source_profile": "dev",
		},
	}
}

func newTestProvider(t *testing.T, store sessioncache.Store, fake *fakeSTS) *Provider {
	t.Helper()
	p, err := NewProvider("admin", ProviderOptions{
		SessionDuration:    12 * time.Hour,
		AssumeRoleDuration: 15 * time.Minute,
		Profiles:           testProfiles(),
		MFATokenProvider:   func() (string, error) { return "123456", nil },
		SessionCache:       store,
	})
	require.NoError(t, err)
	p.newSTSClient = func(*credentials.Credentials, string) stsiface.STSAPI { return fake }
	return p
}

func TestProviderOptionsValidate(t *testing.T) {
	base := ProviderOptions{Profiles: testProfiles()}.ApplyDefaults()
	assert.NoError(t, base.Validate())

	short := base
	short.SessionDuration = time.Minute
	assert.Error(t, short.Validate())

	long := base
	long.AssumeRoleDuration = 2 * time.Hour
	assert.Error(t, long.Validate())
}

func TestRetrieveColdStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := sessioncache.NewFileStore(path)
	require.NoError(t, err)

	fake := &fakeSTS{}
	p := newTestProvider(t, store, fake)

	value, err := p.Retrieve()
	require.NoError(t, err)

	assert.Equal(t, 1, fake.getSessionTokenCalls)
	assert.Equal(t, 1, fake.assumeRoleCalls)
	assert.Equal(t, "ASIASHORTROLE0000001", value.AccessKeyID)
	assert.Equal(t, "short-token", value.SessionToken)
	assert.True(t, p.ExpiresAt().After(time.Now()))

	// the cache file was created
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRetrieveCacheHit(t *testing.T) {
	store, err := sessioncache.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	first := newTestProvider(t, store, &fakeSTS{})
	warm, err := first.Retrieve()
	require.NoError(t, err)

	// fresh provider and STS stub, same cache: no STS round-trips
	fake := &fakeSTS{}
	second := newTestProvider(t, store, fake)
	cached, err := second.Retrieve()
	require.NoError(t, err)

	assert.Equal(t, 0, fake.getSessionTokenCalls)
	assert.Equal(t, 0, fake.assumeRoleCalls)
	assert.Equal(t, warm, cached)
}

func TestRetrieveExpiredRoleSession(t *testing.T) {
	store, err := sessioncache.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	profiles := testProfiles()

	longKey := sessioncache.SessionTokenKey{
		SourceProfile: "dev",
		MFASerial:     profiles["admin"]["mfa_serial"],
		Duration:      12 * time.Hour,
	}
	require.NoError(t, store.Put(longKey, &sessioncache.Session{
		Name: "dev",
		Credentials: sts.Credentials{
			AccessKeyId:     aws.String("ASIALONGCACHED000001"),
			SecretAccessKey: aws.String("long-secret"),
			SessionToken:    aws.String("long-token"),
			Expiration:      aws.Time(time.Now().Add(6 * time.Hour)),
		},
	}))

	shortKey := sessioncache.RoleKey{
		ProfileName: "admin",
		ProfileConf: profiles["admin"],
		Duration:    15 * time.Minute,
	}
	require.NoError(t, store.Put(shortKey, &sessioncache.Session{
		Name: "admin",
		Credentials: sts.Credentials{
			AccessKeyId:     aws.String("ASIASHORTSTALE000001"),
			SecretAccessKey: aws.String("stale-secret"),
			SessionToken:    aws.String("stale-token"),
			Expiration:      aws.Time(time.Now().Add(-time.Second)),
		},
	}))

	fake := &fakeSTS{}
	p := newTestProvider(t, store, fake)

	value, err := p.Retrieve()
	require.NoError(t, err)

	// long session still valid, only the role session is re-minted
	assert.Equal(t, 0, fake.getSessionTokenCalls)
	assert.Equal(t, 1, fake.assumeRoleCalls)
	assert.Equal(t, "ASIASHORTROLE0000001", value.AccessKeyID)

	// the stale entry was overwritten
	got, err := store.Get(shortKey)
	require.NoError(t, err)
	assert.Equal(t, "ASIASHORTROLE0000001", *got.AccessKeyId)
}

func TestRetrieveCorruptCacheIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("definitely not json"), 0600))

	store, err := sessioncache.NewFileStore(path)
	require.NoError(t, err)

	fake := &fakeSTS{}
	p := newTestProvider(t, store, fake)

	_, err = p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, 1, fake.getSessionTokenCalls)
	assert.Equal(t, 1, fake.assumeRoleCalls)
}

func TestRetrieveAuthenticationError(t *testing.T) {
	fake := &fakeSTS{err: errors.New("AccessDenied: MFA token is invalid")}
	p := newTestProvider(t, sessioncache.NullStore{}, fake)

	_, err := p.Retrieve()
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, "admin", authErr.Profile)
}

func TestRetrieveMFAPromptError(t *testing.T) {
	p := newTestProvider(t, sessioncache.NullStore{}, &fakeSTS{})
	p.MFATokenProvider = func() (string, error) { return "", errors.New("stdin closed") }

	_, err := p.Retrieve()
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.True(t, errors.As(err, &authErr))
}

type failingStore struct{}

func (failingStore) Get(k sessioncache.Key) (*sessioncache.Session, error) {
	return nil, xerrors.Errorf("no session for %q: %w", k.Key(), keyring.ErrKeyNotFound)
}

func (failingStore) Put(sessioncache.Key, *sessioncache.Session) error {
	return errors.New("disk full")
}

func (failingStore) Clear(string) (int, error) {
	return 0, nil
}

func TestRetrieveStorageError(t *testing.T) {
	p := newTestProvider(t, failingStore{}, &fakeSTS{})

	_, err := p.Retrieve()
	require.Error(t, err)

	var storageErr *StorageError
	assert.True(t, errors.As(err, &storageErr))
}

func TestRetrieveSharedProfile(t *testing.T) {
	dir := t.TempDir()

	credsFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credsFile, []byte(`[dev]
aws_access_key_id = AKIASTATIC0000000001
aws_secret_access_key = static-secret
`), 0600))
	configFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configFile, []byte("[profile dev]\nregion = us-east-1\n"), 0600))

	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)
	t.Setenv("AWS_CONFIG_FILE", configFile)

	p, err := NewProvider("dev", ProviderOptions{
		Profiles:     testProfiles(),
		SessionCache: sessioncache.NullStore{},
	})
	require.NoError(t, err)

	value, err := p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "AKIASTATIC0000000001", value.AccessKeyID)
	assert.Empty(t, value.SessionToken)
}

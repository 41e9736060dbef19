package lib

import (
	"time"

	"github.com/99designs/keyring"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"

	"github.com/MarioVerbelen/aws-session-handler/internal/sessioncache"
)

// Options configures a Handler. The zero value reads the aws config from
// the standard location and caches sessions in the default cache file.
type Options struct {
	// Region overrides the region from the profile config
	Region string

	// Profiles, when set, skips reading the aws config file
	Profiles Profiles

	// CacheFile overrides the session cache file path
	CacheFile string

	// KeyringBackend selects an OS keyring (e.g. "keychain",
	// "secret-service", "file") as the session cache instead of the cache
	// file
	KeyringBackend string

	// DisableCache turns off persistent session caching entirely
	DisableCache bool

	SessionDuration    time.Duration
	AssumeRoleDuration time.Duration
	ExpiryWindow       time.Duration

	MFATokenProvider MFATokenProvider

	// SessionCache, when set, wins over CacheFile/KeyringBackend/DisableCache
	SessionCache sessioncache.Store
}

// Handler wraps session construction for one profile: credentials are
// resolved through the caching Provider, so repeated invocations don't
// re-prompt for an MFA token while a cached session is still valid.
type Handler struct {
	profile string
	region  string

	provider *Provider
	creds    *credentials.Credentials
	session  *session.Session
}

// New builds a Handler for profile. The profile must exist in the aws
// config.
func New(profile string, opts Options) (*Handler, error) {
	if profile == "" {
		return nil, errors.New("profile must not be empty")
	}

	profiles := opts.Profiles
	if profiles == nil {
		config, err := NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		profiles, err = config.Parse()
		if err != nil {
			return nil, err
		}
	}

	if _, ok := profiles[profile]; !ok {
		return nil, errors.Errorf("profile %q not found in your aws config", profile)
	}

	store, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(profile, ProviderOptions{
		SessionDuration:    opts.SessionDuration,
		AssumeRoleDuration: opts.AssumeRoleDuration,
		ExpiryWindow:       opts.ExpiryWindow,
		Profiles:           profiles,
		MFATokenProvider:   opts.MFATokenProvider,
		SessionCache:       store,
	})
	if err != nil {
		return nil, err
	}

	region := opts.Region
	if region == "" {
		region = profiles.Region(profile)
	}

	creds := credentials.NewCredentials(provider)

	cfg := aws.NewConfig().WithCredentials(creds)
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating session")
	}

	return &Handler{
		profile:  profile,
		region:   region,
		provider: provider,
		creds:    creds,
		session:  sess,
	}, nil
}

func openStore(opts Options) (sessioncache.Store, error) {
	switch {
	case opts.SessionCache != nil:
		return opts.SessionCache, nil
	case opts.DisableCache:
		return sessioncache.NullStore{}, nil
	case opts.KeyringBackend != "":
		kr, err := OpenKeyring([]keyring.BackendType{keyring.BackendType(opts.KeyringBackend)})
		if err != nil {
			return nil, err
		}
		return &sessioncache.SingleKrItemStore{Keyring: kr}, nil
	default:
		return sessioncache.NewFileStore(opts.CacheFile)
	}
}

// Profile returns the profile the handler was built for
func (h *Handler) Profile() string {
	return h.profile
}

// Region returns the resolved region, "" if none was configured
func (h *Handler) Region() string {
	return h.region
}

// Credentials returns valid temporary credentials, refreshing through the
// session cache as needed. May prompt for an MFA token.
func (h *Handler) Credentials() (credentials.Value, error) {
	return h.creds.Get()
}

// Expires returns when the current credentials lapse
func (h *Handler) Expires() time.Time {
	return h.provider.ExpiresAt()
}

// Session returns a session wired with the caching credentials, ready to
// construct service clients from
func (h *Handler) Session() *session.Session {
	return h.session
}

// ClientConfig implements client.ConfigProvider, so service clients can be
// built directly from the handler: s3.New(h)
func (h *Handler) ClientConfig(serviceName string, cfgs ...*aws.Config) client.Config {
	return h.session.ClientConfig(serviceName, cfgs...)
}

package lib

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/MarioVerbelen/aws-session-handler/internal/sessioncache"
)

const (
	MaxSessionDuration    = time.Hour * 36
	MinSessionDuration    = time.Minute * 15
	MinAssumeRoleDuration = time.Minute * 15
	MaxAssumeRoleDuration = time.Hour

	DefaultSessionDuration    = time.Hour * 12
	DefaultAssumeRoleDuration = time.Minute * 15

	DefaultExpiryWindow = time.Minute * 5

	roleSessionName = "SessionHandlerAssumeRole"

	// ProviderName is reported in credentials.Value
	ProviderName = "aws-session-handler"
)

type ProviderOptions struct {
	SessionDuration    time.Duration
	AssumeRoleDuration time.Duration
	ExpiryWindow       time.Duration
	Profiles           Profiles

	// MFATokenProvider supplies the token code for GetSessionToken; defaults
	// to a terminal prompt for the profile's mfa_serial
	MFATokenProvider MFATokenProvider

	// SessionCache defaults to a FileStore at the standard cache path
	SessionCache sessioncache.Store
}

func (o ProviderOptions) Validate() error {
	if o.SessionDuration < MinSessionDuration {
		return errors.New("Minimum session duration is " + MinSessionDuration.String())
	} else if o.SessionDuration > MaxSessionDuration {
		return errors.New("Maximum session duration is " + MaxSessionDuration.String())
	}
	if o.AssumeRoleDuration < MinAssumeRoleDuration {
		return errors.New("Minimum duration for assumed roles is " + MinAssumeRoleDuration.String())
	} else if o.AssumeRoleDuration > MaxAssumeRoleDuration {
		return errors.New("Maximum duration for assumed roles is " + MaxAssumeRoleDuration.String())
	}

	return nil
}

func (o ProviderOptions) ApplyDefaults() ProviderOptions {
	if o.SessionDuration == 0 {
		o.SessionDuration = DefaultSessionDuration
	}
	if o.AssumeRoleDuration == 0 {
		o.AssumeRoleDuration = DefaultAssumeRoleDuration
	}
	if o.ExpiryWindow == 0 {
		o.ExpiryWindow = DefaultExpiryWindow
	}
	return o
}

// Provider is a credentials.Provider that resolves a profile to temporary
// credentials, caching the intermediate STS sessions.
//
// For a profile carrying role_arn, mfa_serial and source_profile it mints a
// long GetSessionToken session under the source profile's MFA device and a
// short AssumeRole session under that, each read through the session cache.
// Any other profile defers to the SDK's shared-config credential chain.
type Provider struct {
	credentials.Expiry
	ProviderOptions
	profile  string
	region   string
	expires  time.Time
	sessions sessioncache.Store

	// overridden in tests
	newSTSClient func(creds *credentials.Credentials, region string) stsiface.STSAPI
}

func NewProvider(profile string, opts ProviderOptions) (*Provider, error) {
	opts = opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		ProviderOptions: opts,
		profile:         profile,
		region:          opts.Profiles.Region(profile),
		sessions:        opts.SessionCache,
		newSTSClient:    defaultSTSClient,
	}

	if p.sessions == nil {
		store, err := sessioncache.NewFileStore("")
		if err != nil {
			return nil, err
		}
		p.sessions = store
	}

	if p.MFATokenProvider == nil {
		serial, _, _ := opts.Profiles.GetValue(profile, "mfa_serial")
		p.MFATokenProvider = TerminalMFATokenProvider(serial)
	}

	return p, nil
}

func defaultSTSClient(creds *credentials.Credentials, region string) stsiface.STSAPI {
	cfg := aws.NewConfig()
	if creds != nil {
		cfg = cfg.WithCredentials(creds)
	}
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	return sts.New(session.Must(session.NewSession()), cfg)
}

// Retrieve implements credentials.Provider. The returned credentials expire
// strictly in the future.
func (p *Provider) Retrieve() (credentials.Value, error) {
	if !p.Profiles.HasRoleChain(p.profile) {
		return p.retrieveShared()
	}

	conf := p.Profiles[p.profile]
	source := conf["source_profile"]

	longKey := sessioncache.SessionTokenKey{
		SourceProfile: source,
		MFASerial:     conf["mfa_serial"],
		Duration:      p.SessionDuration,
	}
	long, err := p.sessions.Get(longKey)
	if err != nil {
		long, err = p.getSessionToken(source, conf["mfa_serial"])
		if err != nil {
			return credentials.Value{}, err
		}
		if err := p.sessions.Put(longKey, long); err != nil {
			return credentials.Value{}, &StorageError{Err: err}
		}
	}

	log.Debugf("using session %s, expires in %s",
		(*long.AccessKeyId)[len(*long.AccessKeyId)-4:],
		time.Until(*long.Expiration).String())

	shortKey := sessioncache.RoleKey{
		ProfileName: p.profile,
		ProfileConf: conf,
		Duration:    p.AssumeRoleDuration,
	}
	short, err := p.sessions.Get(shortKey)
	if err != nil {
		short, err = p.assumeRoleFromSession(long, conf["role_arn"])
		if err != nil {
			return credentials.Value{}, err
		}
		if err := p.sessions.Put(shortKey, short); err != nil {
			return credentials.Value{}, &StorageError{Err: err}
		}
	}

	log.Debugf("using role %s, expires in %s",
		(*short.AccessKeyId)[len(*short.AccessKeyId)-4:],
		time.Until(*short.Expiration).String())

	p.SetExpiration(*short.Expiration, p.ExpiryWindow)
	p.expires = *short.Expiration

	return credentials.Value{
		AccessKeyID:     *short.AccessKeyId,
		SecretAccessKey: *short.SecretAccessKey,
		SessionToken:    *short.SessionToken,
		ProviderName:    ProviderName,
	}, nil
}

// ExpiresAt returns when the current credentials lapse; zero before the
// first Retrieve
func (p *Provider) ExpiresAt() time.Time {
	return p.expires
}

// retrieveShared handles profiles without a role chain by deferring to the
// SDK's shared config credential resolution, the same way the original tool
// fell back to a plain session
func (p *Provider) retrieveShared() (credentials.Value, error) {
	log.Debugf("profile %s has no role chain, using shared config credentials", p.profile)

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           p.profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return credentials.Value{}, errors.Wrap(err, "opening shared config session")
	}

	value, err := sess.Config.Credentials.Get()
	if err != nil {
		return credentials.Value{}, &AuthenticationError{Profile: p.profile, Err: err}
	}

	// static keys don't expire; refresh on the session cadence anyway
	expires := time.Now().Add(p.SessionDuration)
	p.SetExpiration(expires, p.ExpiryWindow)
	p.expires = expires

	value.ProviderName = ProviderName
	return value, nil
}

func (p *Provider) getSessionToken(source string, mfaSerial string) (*sessioncache.Session, error) {
	token, err := p.MFATokenProvider()
	if err != nil {
		return nil, &AuthenticationError{Profile: p.profile, Err: err}
	}

	client := p.newSTSClient(credentials.NewSharedCredentials("", source), p.region)

	log.Debugf("getting session token for %s (mfa %s)", source, mfaSerial)
	resp, err := client.GetSessionToken(&sts.GetSessionTokenInput{
		DurationSeconds: aws.Int64(int64(p.SessionDuration.Seconds())),
		SerialNumber:    aws.String(mfaSerial),
		TokenCode:       aws.String(token),
	})
	if err != nil {
		return nil, &AuthenticationError{Profile: p.profile, Err: err}
	}

	return &sessioncache.Session{Name: source, Credentials: *resp.Credentials}, nil
}

// assumeRoleFromSession exchanges the long MFA-backed session for the
// profile's role
func (p *Provider) assumeRoleFromSession(sess *sessioncache.Session, roleARN string) (*sessioncache.Session, error) {
	creds := credentials.NewStaticCredentials(
		*sess.AccessKeyId,
		*sess.SecretAccessKey,
		*sess.SessionToken,
	)
	client := p.newSTSClient(creds, p.region)

	log.Debugf("assuming role %s from session token", roleARN)
	resp, err := client.AssumeRole(&sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(roleSessionName),
		DurationSeconds: aws.Int64(int64(p.AssumeRoleDuration.Seconds())),
	})
	if err != nil {
		return nil, &AuthenticationError{Profile: p.profile, Err: err}
	}

	return &sessioncache.Session{Name: p.profile, Credentials: *resp.Credentials}, nil
}

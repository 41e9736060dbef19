package sessioncache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SessionTokenKey identifies the long-lived GetSessionToken session minted
// against a source profile's MFA device
type SessionTokenKey struct {
	SourceProfile string
	MFASerial     string
	Duration      time.Duration
}

func (k SessionTokenKey) Key() string {
	hasher := md5.New()
	hasher.Write([]byte(k.Duration.String()))
	hasher.Write([]byte(k.MFASerial))

	return fmt.Sprintf("%s session (%s)", k.SourceProfile, hex.EncodeToString(hasher.Sum(nil))[0:10])
}

// RoleKey identifies the short-lived assume-role session for a profile.
//
// The whole profile conf goes into the hash: changing role_arn,
// source_profile or anything else in the profile yields a fresh key, so
// sessions minted under the old configuration are never read again.
type RoleKey struct {
	ProfileName string
	ProfileConf map[string]string
	Duration    time.Duration
}

func (k RoleKey) Key() string {
	hasher := md5.New()
	hasher.Write([]byte(k.Duration.String()))

	// encoding/json sorts map keys, so this is stable
	enc := json.NewEncoder(hasher)
	enc.Encode(k.ProfileConf)

	return fmt.Sprintf("%s role (%s)", k.ProfileName, hex.EncodeToString(hasher.Sum(nil))[0:10])
}

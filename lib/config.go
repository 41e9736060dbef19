package lib

import (
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	ini "github.com/vaughan0/go-ini"
)

// Profiles is the parsed aws config file: section name (with any `profile `
// prefix stripped) to key/value settings
type Profiles map[string]map[string]string

type config interface {
	Parse() (Profiles, error)
}

type fileConfig struct {
	file string
}

// NewConfigFromEnv locates the aws config file from AWS_CONFIG_FILE,
// falling back to ~/.aws/config
func NewConfigFromEnv() (config, error) {
	file := os.Getenv("AWS_CONFIG_FILE")
	if file == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		file = filepath.Join(home, ".aws", "config")
		if _, err := os.Stat(file); os.IsNotExist(err) {
			file = ""
		}
	}
	return &fileConfig{file: file}, nil
}

func (c *fileConfig) Parse() (Profiles, error) {
	if c.file == "" {
		return nil, nil
	}

	log.Debugf("Parsing config file %s", c.file)
	f, err := ini.LoadFile(c.file)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", c.file)
	}

	profiles := Profiles{}
	for sectionName, section := range f {
		profiles[strings.TrimPrefix(sectionName, "profile ")] = section
	}

	return profiles, nil
}

// SourceProfile returns the profile's source_profile, or p itself if none
// is configured
func SourceProfile(p string, from Profiles) string {
	if conf, ok := from[p]; ok {
		if source := conf["source_profile"]; source != "" {
			return source
		}
	}
	return p
}

// GetValue looks configKey up in the profile, then in its source profile,
// then in the default section. It returns the value and the profile it was
// found in.
func (p Profiles) GetValue(profile string, configKey string) (string, string, error) {
	configValue, ok := p[profile][configKey]
	if ok {
		return configValue, profile, nil
	}

	// Lookup from the `source_profile`, if it exists
	if source, ok := p[profile]["source_profile"]; ok {
		if configValue, ok := p[source][configKey]; ok {
			return configValue, source, nil
		}
	}

	// Fall back to the `default` section
	if configValue, ok := p["default"][configKey]; ok {
		return configValue, "default", nil
	}

	return "", "", errors.Errorf("could not find %s in %s, its source profile, or default", configKey, profile)
}

// Region resolves the region for a profile through the GetValue fallback
// chain, returning "" when none is configured anywhere
func (p Profiles) Region(profile string) string {
	region, _, err := p.GetValue(profile, "region")
	if err != nil {
		return ""
	}
	return region
}

// HasRoleChain reports whether the profile is configured for MFA-backed
// role assumption: role_arn, mfa_serial and source_profile all present
func (p Profiles) HasRoleChain(profile string) bool {
	conf, ok := p[profile]
	if !ok {
		return false
	}
	return conf["role_arn"] != "" && conf["mfa_serial"] != "" && conf["source_profile"] != ""
}

package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/MarioVerbelen/aws-session-handler/lib"
)

var (
	sessionTTL    time.Duration
	assumeRoleTTL time.Duration
)

func listProfiles() (lib.Profiles, error) {
	config, err := lib.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}

	profiles, err := config.Parse()
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

func mustListProfiles() lib.Profiles {
	profiles, err := listProfiles()
	if err != nil {
		log.Panicf("Failed to list profiles: %v", err)
	}
	return profiles
}

func listProfileNames(ps lib.Profiles) []string {
	// sorted so the output is deterministic
	var profileNames []string
	for profile := range ps {
		profileNames = append(profileNames, profile)
	}
	sort.Strings(profileNames)

	return profileNames
}

// ttlFlags registers the duration flags shared by the credential-producing
// commands
func ttlFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVarP(&sessionTTL, "session-ttl", "t", lib.DefaultSessionDuration, "Lifetime for the MFA-backed session token")
	cmd.Flags().DurationVarP(&assumeRoleTTL, "assume-role-ttl", "a", lib.DefaultAssumeRoleDuration, "Lifetime for the assumed role session")
}

func loadDurationFlagFromEnv(cmd *cobra.Command, flagName string, envVar string, val *time.Duration) error {
	if cmd.Flags().Lookup(flagName).Changed {
		return nil
	}

	fromEnv, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}

	dur, err := time.ParseDuration(fromEnv)
	if err != nil {
		return err
	}

	cmd.Flags().Lookup(flagName).Changed = true
	*val = dur
	return nil
}

func updateDurationFromConfigProfile(profiles lib.Profiles, profile string, configKey string, val *time.Duration) error {
	fromProfile, _, err := profiles.GetValue(profile, configKey)
	if err != nil {
		return nil
	}

	dur, err := time.ParseDuration(fromProfile)
	if err != nil {
		return err
	}

	*val = dur
	return nil
}

// resolveTTLs applies the flag < env var < profile config precedence the
// credential commands share
func resolveTTLs(cmd *cobra.Command, profiles lib.Profiles, profile string) {
	if err := loadDurationFlagFromEnv(cmd, "session-ttl", "AWS_SESSION_TTL", &sessionTTL); err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to parse duration from AWS_SESSION_TTL")
	}
	if err := loadDurationFlagFromEnv(cmd, "assume-role-ttl", "AWS_ASSUME_ROLE_TTL", &assumeRoleTTL); err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to parse duration from AWS_ASSUME_ROLE_TTL")
	}

	if !cmd.Flags().Lookup("session-ttl").Changed {
		if err := updateDurationFromConfigProfile(profiles, profile, "session_ttl", &sessionTTL); err != nil {
			fmt.Fprintln(os.Stderr, "warning: could not parse session_ttl from profile config")
		}
	}
	if !cmd.Flags().Lookup("assume-role-ttl").Changed {
		if err := updateDurationFromConfigProfile(profiles, profile, "assume_role_ttl", &assumeRoleTTL); err != nil {
			fmt.Fprintln(os.Stderr, "warning: could not parse assume_role_ttl from profile config")
		}
	}
}

// newHandler loads the aws config, validates the profile and wires a
// handler from the global flags
func newHandler(cmd *cobra.Command, profile string) (*lib.Handler, lib.Profiles, error) {
	profiles, err := listProfiles()
	if err != nil {
		return nil, nil, err
	}

	if _, ok := profiles[profile]; !ok {
		return nil, nil, fmt.Errorf("profile '%s' not found in your aws config. Use list command to see configured profiles", profile)
	}

	resolveTTLs(cmd, profiles, profile)

	h, err := lib.New(profile, lib.Options{
		Profiles:           profiles,
		CacheFile:          cacheFile,
		KeyringBackend:     backend,
		DisableCache:       noCache,
		SessionDuration:    sessionTTL,
		AssumeRoleDuration: assumeRoleTTL,
	})
	if err != nil {
		return nil, nil, err
	}

	return h, profiles, nil
}

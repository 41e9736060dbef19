package cmd

import (
	"fmt"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/MarioVerbelen/aws-session-handler/internal/sessioncache"
	"github.com/MarioVerbelen/aws-session-handler/lib"
)

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:       "clear <profile>",
	Short:     "clear removes cached sessions for the specified profile",
	RunE:      clearRun,
	ValidArgs: listProfileNames(mustListProfiles()),
}

func init() {
	RootCmd.AddCommand(clearCmd)
}

func openStoreFromFlags() (sessioncache.Store, error) {
	if backend != "" {
		kr, err := lib.OpenKeyring([]keyring.BackendType{keyring.BackendType(backend)})
		if err != nil {
			return nil, err
		}
		return &sessioncache.SingleKrItemStore{Keyring: kr}, nil
	}
	return sessioncache.NewFileStore(cacheFile)
}

func clearRun(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return ErrTooFewArguments
	}
	if len(args) > 1 {
		return ErrTooManyArguments
	}

	profile := args[0]
	profiles, err := listProfiles()
	if err != nil {
		return err
	}

	store, err := openStoreFromFlags()
	if err != nil {
		return err
	}

	// both the profile's role sessions and its source profile's session
	// tokens
	n, err := store.Clear(fmt.Sprintf("%s role", profile))
	if err != nil {
		return err
	}
	m, err := store.Clear(fmt.Sprintf("%s session", lib.SourceProfile(profile, profiles)))
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d sessions.\n", n+m)
	return nil
}

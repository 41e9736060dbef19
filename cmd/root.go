package cmd

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Errors returned from frontend commands
var (
	ErrCommandMissing   = errors.New("must specify command to run")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrTooFewArguments  = errors.New("too few arguments")
)

// global flags
var (
	backend   string
	debug     bool
	noCache   bool
	cacheFile string
)

var version string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:              "aws-session-handler",
	Short:            "aws-session-handler caches MFA-backed assume-role credentials between invocations",
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRun: prerun,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute(vers string) {
	version = vers
	RootCmd.Version = version
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		switch err {
		case ErrTooFewArguments, ErrTooManyArguments, ErrCommandMissing:
			RootCmd.Usage()
		}
		os.Exit(1)
	}
}

func prerun(cmd *cobra.Command, args []string) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	// Load backend from env var if not set as a flag
	if !cmd.Flags().Lookup("backend").Changed {
		if backendFromEnv, ok := os.LookupEnv("AWS_SESSION_HANDLER_BACKEND"); ok {
			backend = backendFromEnv
		}
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	RootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "Keyring backend to cache sessions in instead of the cache file (secret-service, keychain, kwallet, wincred, file)")
	RootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable the persistent session cache")
	RootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", "", "Path of the session cache file")
}

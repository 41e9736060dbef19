package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
)

// envCmd represents the env command
var envCmd = &cobra.Command{
	Use:       "env <profile>",
	Short:     "env prints out export commands for the specified profile",
	RunE:      envRun,
	Example:   "source <(aws-session-handler env test)",
	ValidArgs: listProfileNames(mustListProfiles()),
}

func printExport(varName, varValue string) {
	exportString := "export %s=%s\n"
	myShell, hasShell := os.LookupEnv("SHELL")
	if hasShell && strings.Contains(myShell, "fish") {
		exportString = "set -x %s %s\n"
	}
	fmt.Printf(exportString, varName, varValue)
}

func init() {
	RootCmd.AddCommand(envCmd)
	ttlFlags(envCmd)
}

func envRun(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return ErrTooFewArguments
	}
	if len(args) > 1 {
		return ErrTooManyArguments
	}

	profile := args[0]
	h, profiles, err := newHandler(cmd, profile)
	if err != nil {
		return err
	}

	creds, err := h.Credentials()
	if err != nil {
		return err
	}

	printExport("AWS_ACCESS_KEY_ID", shellescape.Quote(creds.AccessKeyID))
	printExport("AWS_SECRET_ACCESS_KEY", shellescape.Quote(creds.SecretAccessKey))
	printExport("AWS_SESSION_HANDLER_PROFILE", shellescape.Quote(profile))

	if region, ok := profiles[profile]["region"]; ok {
		printExport("AWS_DEFAULT_REGION", shellescape.Quote(region))
		printExport("AWS_REGION", shellescape.Quote(region))
	}

	if creds.SessionToken != "" {
		printExport("AWS_SESSION_TOKEN", shellescape.Quote(creds.SessionToken))
		printExport("AWS_SECURITY_TOKEN", shellescape.Quote(creds.SessionToken))
	}

	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const credProcessVersion = 1

var pretty bool

type credProcess struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken,omitempty"`
	Expiration      string `json:"Expiration,omitempty"`
}

// credProcessCmd represents the cred-process command
var credProcessCmd = &cobra.Command{
	Use:       "cred-process <profile>",
	Short:     "cred-process generates a credential_process ready output",
	RunE:      credProcessRun,
	Example:   "[profile foo]\ncredential_process = aws-session-handler cred-process foo",
	ValidArgs: listProfileNames(mustListProfiles()),
}

func init() {
	RootCmd.AddCommand(credProcessCmd)
	ttlFlags(credProcessCmd)
	credProcessCmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Pretty print display")
}

func credProcessRun(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return ErrTooFewArguments
	}
	if len(args) > 1 {
		return ErrTooManyArguments
	}

	h, _, err := newHandler(cmd, args[0])
	if err != nil {
		return err
	}

	creds, err := h.Credentials()
	if err != nil {
		return err
	}

	cp := credProcess{
		Version:         credProcessVersion,
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}
	if expires := h.Expires(); !expires.IsZero() {
		cp.Expiration = expires.Format(time.RFC3339)
	}

	var out []byte
	if pretty {
		out, err = json.MarshalIndent(cp, "", "  ")
	} else {
		out, err = json.Marshal(cp)
	}
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list will show you the profiles currently configured",
	RunE:  listRun,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func listRun(cmd *cobra.Command, args []string) error {
	profiles, err := listProfiles()
	if err != nil {
		return err
	}

	w := new(tabwriter.Writer)
	w.Init(os.Stdout, 0, 8, 2, '\t', 0)
	fmt.Fprintln(w, "PROFILE\tROLE_ARN\tSOURCE_PROFILE\tMFA_SERIAL\t")
	for _, profile := range listProfileNames(profiles) {
		v := profiles[profile]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", profile, v["role_arn"], v["source_profile"], v["mfa_serial"])
	}
	w.Flush()

	return nil
}

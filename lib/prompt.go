package lib

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/ssh/terminal"
)

// MFATokenProvider supplies a one-time MFA token code
type MFATokenProvider func() (string, error)

// TerminalMFATokenProvider prompts for a token code on the terminal. The
// prompt goes to stderr so that stdout stays safe to parse or source.
func TerminalMFATokenProvider(mfaSerial string) MFATokenProvider {
	return func() (string, error) {
		return PromptWithOutput(fmt.Sprintf("MFA token for %s", mfaSerial), true, os.Stderr)
	}
}

func Prompt(prompt string, sensitive bool) (string, error) {
	return PromptWithOutput(prompt, sensitive, os.Stdout)
}

func PromptWithOutput(prompt string, sensitive bool, output *os.File) (string, error) {
	fmt.Fprintf(output, "%s: ", prompt)
	defer fmt.Fprintf(output, "\n")

	if sensitive {
		input, err := terminal.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(input)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

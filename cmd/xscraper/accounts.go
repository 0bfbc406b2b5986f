package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xscraper/pkg/auth"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored platform accounts",
	Long: `Manage the platform accounts used for fetching.

Accounts are auth_token and ct0 cookie pairs, stored in the system
keychain when available, otherwise in an encrypted file. Accounts can
also be supplied read-only through AUTH1/CT01, AUTH2/CT02, ...
environment variables.

To obtain the cookie values, log into the platform in a browser, open
the developer tools, and copy the auth_token and ct0 cookies.`,
}

// accountsAddCmd represents the accounts add command
var accountsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Store an account's credentials",
	Long: `Store an account's credentials securely.

You will be prompted for the auth_token and ct0 cookie values (input is
hidden) and an optional egress proxy URL.`,
	Example: `  xscraper accounts add acc1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountsAdd,
}

// accountsListCmd represents the accounts list command
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE:  runAccountsList,
}

// accountsRemoveCmd represents the accounts remove command
var accountsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Short:   "Remove a stored account",
	Example: `  xscraper accounts remove acc1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountsRemove,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("initializing credential manager: %w", err)
	}
	name := args[0]

	authToken, err := promptSecret("auth_token: ")
	if err != nil {
		return err
	}
	csrfToken, err := promptSecret("ct0: ")
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("proxy URL (optional, press Enter to skip): ")
	proxy, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:      name,
		AuthToken: authToken,
		CSRFToken: csrfToken,
		Proxy:     strings.TrimSpace(proxy),
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	fmt.Printf("Account %q stored.\n", name)
	return nil
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("initializing credential manager: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts stored. Use 'xscraper accounts add <name>' to add one.")
		return nil
	}

	for _, account := range accounts {
		masked := auth.Sanitize(account)
		proxy := masked.Proxy
		if proxy == "" {
			proxy = "-"
		}
		fmt.Printf("%-12s  auth_token=%-14s  ct0=%-14s  proxy=%s\n",
			masked.Name, masked.AuthToken, masked.CSRFToken, proxy)
	}
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("initializing credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Account %q removed.\n", args[0])
	return nil
}

// promptSecret reads a value without echoing it.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" {
		return "", fmt.Errorf("value is required")
	}
	return trimmed, nil
}

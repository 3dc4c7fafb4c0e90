package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"recipescraper/pkg/auth"
	"recipescraper/pkg/ui"
)

var (
	loginLocale string
	logoutAll   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Cookidoo credentials",
	Long: `Manage stored Cookidoo credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Cookidoo credentials securely",
	Long: `Store the username and password of a Cookidoo account in the system
keychain, or in an encrypted file when no keychain is available.

The most recently stored account is used when a scrape is started
without credentials.`,
	Example: `  # Interactive login
  recipescraper auth login

  # Login with username and locale
  recipescraper auth login cook@example.com --locale de`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Example: `  recipescraper auth logout cook@example.com
  recipescraper auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain the ways to provide credentials",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowCredentialGuide(cmd.OutOrStdout())
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginLocale, "locale", "l", "", "Cookidoo domain suffix of the account, e.g. de")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")

	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(guideCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to initialize credential manager: %w", err))
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		username, err = prompt(reader, "Cookidoo username (email): ")
		if err != nil {
			return exitWith(exitFailure, fmt.Errorf("failed to read username: %w", err))
		}
	}
	if username == "" {
		return exitWith(exitFailure, errors.New("username is required"))
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update it? (y/N): ", username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
		if loginLocale == "" {
			loginLocale = existing.Locale
		}
	}

	fmt.Print("Password (hidden): ")
	pass, err := readPassword(reader)
	fmt.Println()
	if err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to read password: %w", err))
	}

	if loginLocale == "" {
		loginLocale, _ = prompt(reader, "Locale (e.g. de, press Enter to skip): ")
	}

	account := &auth.Account{
		Username: username,
		Password: pass,
		Locale:   loginLocale,
	}
	if err := manager.Store(account); err != nil {
		return exitWith(exitFailure, err)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))
	auth.ShowQuickGuide(cmd.OutOrStdout())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to initialize credential manager: %w", err))
	}

	var usernames []string
	switch {
	case logoutAll:
		accounts, err := manager.List()
		if err != nil {
			return exitWith(exitFailure, err)
		}
		for _, a := range accounts {
			usernames = append(usernames, a.Username)
		}
	case len(args) == 1:
		usernames = []string{args[0]}
	default:
		return exitWith(exitFailure, errors.New("give a username or --all"))
	}

	if len(usernames) == 0 {
		ui.PrintInfo("Stored accounts", "none")
		return nil
	}

	for _, name := range usernames {
		if err := manager.Delete(name); err != nil {
			return exitWith(exitFailure, err)
		}
		ui.PrintSuccess(fmt.Sprintf("Removed account: %s", name))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return exitWith(exitFailure, fmt.Errorf("failed to initialize credential manager: %w", err))
	}

	accounts, err := manager.List()
	if err != nil {
		return exitWith(exitFailure, err)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts, run 'recipescraper auth login' to add one")
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderAccounts(accounts))
	return nil
}

// prompt prints label and reads one trimmed line
func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password without echo when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

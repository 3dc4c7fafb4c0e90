package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCredentialGuide writes the ways a Cookidoo login can be supplied
func ShowCredentialGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "🔐 COOKIDOO LOGIN SETUP")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "recipescraper signs in with the email and password of your Cookidoo")
	fmt.Fprintln(w, "account. The locale selects the regional site, e.g. de or fr.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💾 OPTION 1: Save the login once")
	fmt.Fprintln(w, "   recipescraper auth login you@example.com --locale de")
	fmt.Fprintln(w, "   The password is prompted for and kept in the system keyring,")
	fmt.Fprintln(w, "   or in an encrypted file when no keyring is available.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌍 OPTION 2: Environment variables")
	fmt.Fprintf(w, "   %-22s %s\n", "THERMOMIX_USERNAME", "account email (COOKIDOO_EMAIL also works)")
	fmt.Fprintf(w, "   %-22s %s\n", "THERMOMIX_PASSWORD", "account password (COOKIDOO_PASSWORD)")
	fmt.Fprintf(w, "   %-22s %s\n", "THERMOMIX_LOCALE", "site locale (COOKIDOO_LOCALE)")
	fmt.Fprintln(w, "   A .env file in the working directory is read as well.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⌨️  OPTION 3: Flags")
	fmt.Fprintln(w, "   recipescraper scrape --username ... --password ... --locale ...")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY:")
	fmt.Fprintln(w, "   • Flags end up in your shell history, prefer options 1 or 2")
	fmt.Fprintf(w, "   • Set %s to choose the encrypted file passphrase\n", PassphraseEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

// ShowQuickGuide writes a one-line reminder for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "🔐 No Cookidoo login found. Run 'recipescraper auth login' or set THERMOMIX_USERNAME, THERMOMIX_PASSWORD and THERMOMIX_LOCALE.")
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anikama/anikama-cli/internal/auth"
	"github.com/anikama/anikama-cli/internal/session"
)

var (
	loginEmail       string
	registerEmail    string
	registerUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in to your anikama account. The session is stored in
ANIKAMA_SESSION_FILE and refreshed automatically.

Examples:
  anikama login
  anikama login --email you@example.com`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "display name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())

	email, err := promptLine(cmd.OutOrStdout(), in, "Email: ", loginEmail)
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd.OutOrStdout(), in)
	if err != nil {
		return err
	}

	s, err := authProvider.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n",
		defaultTheme.successStyle().Render("✓"), s.User.DisplayName())
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	username, err := promptLine(out, in, "Username: ", registerUsername)
	if err != nil {
		return err
	}
	email, err := promptLine(out, in, "Email: ", registerEmail)
	if err != nil {
		return err
	}
	password, err := promptPassword(out, in)
	if err != nil {
		return err
	}

	s, err := authProvider.SignUp(ctx, email, password, username)
	if errors.Is(err, auth.ErrConfirmationRequired) {
		fmt.Fprintln(out, defaultTheme.hintStyle().Render("Account created. "+err.Error()+", then run 'anikama login'."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Fprintf(out, "%s Welcome, %s\n", defaultTheme.successStyle().Render("✓"), s.User.DisplayName())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := authProvider.SignOut(cmd.Context()); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed out. Removed %s\n", sessionFile.Path())
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	u := sessions.Current()
	if u == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	printSessionUser(cmd.OutOrStdout(), u)
	if sessions.IsPremium() {
		fmt.Fprintln(cmd.OutOrStdout(), defaultTheme.successStyle().Render("  ★ premium stories unlocked"))
	}
	return nil
}

func printSessionUser(w io.Writer, u *session.User) {
	fmt.Fprintf(w, "%s\n", defaultTheme.titleStyle().Render(u.Username))
	if u.Email != "" {
		fmt.Fprintf(w, "  Email: %s\n", u.Email)
	}
	fmt.Fprintf(w, "  Tier:  %s\n", u.Tier)
	fmt.Fprintf(w, "  ID:    %s\n", u.ID)
}

// promptLine returns preset when set, otherwise reads one line after printing label.
func promptLine(w io.Writer, r *bufio.Reader, label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(strings.TrimSpace(label), ":")))
	}
	return line, nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(w io.Writer, r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(w, r, "Password: ", "")
	}
	fmt.Fprint(w, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("password is required")
	}
	return string(b), nil
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/session"
	"github.com/tcam/gwcfg/internal/ui"
)

var (
	passwordStdin bool
	checkRemote   bool
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in to the gateway",
	Long: `Sign in to the gateway and remember the operator for later commands.

The password is read from the terminal without echo, or from standard
input with --password-stdin. Only the session token is saved.`,
	Example: `  gwcfg login admin
  echo "$GW_PASSWORD" | gwcfg login admin --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(passwordStdin)
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := client.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}

		registry.SignIn(&resp.User, resp.Token)
		if target.Name != "" {
			registry.TouchGateway(target.Name)
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Signed in as %s on %s\n", session.DisplayName(registry.CurrentUser), target.BaseURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in operator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if registry.CurrentUser == nil {
			fmt.Println("Not signed in.")
			return nil
		}
		name := registry.CurrentUser.Username
		registry.SignOut()
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Signed out %s\n", name)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in operator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := registry.CurrentUser
		if checkRemote {
			client, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			if u, err = client.Me(cmd.Context()); err != nil {
				if api.IsHTTPError(err) {
					return fmt.Errorf("session rejected by the gateway, sign in again: %w", err)
				}
				return err
			}
		}
		if u == nil {
			fmt.Println("Not signed in.")
			fmt.Println("Use 'gwcfg login <username>' to sign in.")
			return nil
		}

		rows := [][]string{
			{"Username", u.Username},
			{"Name", orDash(u.FullName)},
			{"Company", orDash(u.Company)},
			{"Role", u.Role},
		}
		if len(u.Permissions) > 0 {
			rows = append(rows, []string{"Permissions", strings.Join(u.Permissions, ", ")})
		}
		ui.NewPrinter(os.Stdout).PrintTable([]string{"Operator", ""}, rows)
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")
	whoamiCmd.Flags().BoolVar(&checkRemote, "check", false, "Ask the gateway who the saved session belongs to")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func readPassword(fromStdin bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !fromStdin && term.IsTerminal(fd) {
		fmt.Print("Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vietddude/soqlguard/internal/control"
	"github.com/vietddude/soqlguard/internal/infra/keychain"
	"github.com/vietddude/soqlguard/internal/infra/salesforce"
)

var (
	loginUsername string
	loginSandbox  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify Salesforce credentials and store them in the OS keychain",
	Long: `The login command prompts for a password and security token, performs a
partner login to verify them and stores them in the OS keychain. Later
commands use the stored credentials when no username is configured.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials and cached sessions",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Salesforce username")
	loginCmd.Flags().BoolVar(&loginSandbox, "sandbox", false, "log in to a sandbox org")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	km, err := keychain.NewManager()
	if err != nil {
		pterm.Error.Println("Secure storage is not available on this system")
		return err
	}

	sf := &cfg.Salesforce
	sf.Username = firstNonEmpty(loginUsername, sf.Username)
	sf.Sandbox = sf.Sandbox || loginSandbox
	sf.SessionToken, sf.InstanceURL = "", ""

	if sf.Username == "" {
		if sf.Username, err = pterm.DefaultInteractiveTextInput.Show("Username"); err != nil {
			return err
		}
	}
	if sf.Password == "" {
		if sf.Password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password"); err != nil {
			return err
		}
	}
	if sf.SecurityToken == "" {
		if sf.SecurityToken, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Security token (empty if IP is trusted)"); err != nil {
			return err
		}
	}
	if sf.Username == "" || sf.Password == "" {
		return errors.New("username and password are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{SkipHistory: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	spinner, _ := pterm.DefaultSpinner.Start("Verifying credentials")
	session, err := app.Auth.Login(ctx)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Login failed")
		}
		if salesforce.IsKind(err, salesforce.KindUnauthorized) {
			pterm.Println("   Check the password and security token.")
		}
		return &exitError{code: exitTransportFailure, err: err}
	}
	if spinner != nil {
		spinner.Success("Logged in as " + session.Username)
	}

	creds := keychain.Credentials{
		Username:      sf.Username,
		Password:      sf.Password,
		SecurityToken: sf.SecurityToken,
		LoginURL:      sf.LoginURL,
		Sandbox:       sf.Sandbox,
	}
	if err := km.SaveCredentials(creds); err != nil {
		return err
	}
	pterm.Println("Instance: " + session.InstanceURL)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	km, err := keychain.NewManager()
	if err != nil {
		return err
	}

	app, err := control.NewApp(cmd.Context(), cfg, control.Options{Keychain: km, SkipHistory: true})
	if err == nil {
		if err := app.Auth.Forget(cmd.Context()); err != nil {
			pterm.Warning.Println("Could not clear cached session: " + err.Error())
		}
		_ = app.Close()
	}

	if err := km.Clear(); err != nil {
		return err
	}
	pterm.Success.Println("Stored credentials and sessions have been removed")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

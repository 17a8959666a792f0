package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth"
)

var (
	keyName        string
	keyExpires     string
	keyRateLimit   int
	keyPermissions string
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage API keys",
	Long: `Issue, list and revoke the bearer keys clients use against the API.

The secret of a new key is printed once and never stored; only its hash
and a short display prefix are kept.`,
}

var keyCreateCmd = &cobra.Command{
	Use:   "create <user-id>",
	Short: "Issue a key for a user",
	Long: `Issue a key for an active user.

EXAMPLES:

  healthctl key create <user-id> --name iphone
  healthctl key create <user-id> --expires 2027-01-01T00:00:00Z
  healthctl key create <user-id> --expires 720h --rate-limit 500`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		opts, err := keyOptions(time.Now())
		if err != nil {
			return err
		}
		svc, err := authService()
		if err != nil {
			return err
		}
		secret, k, err := svc.CreateKey(cmd.Context(), userID, keyName, opts)
		if err != nil {
			return fmt.Errorf("failed to create key: %w", err)
		}
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Created key %s (%s)\n", k.KeyPrefix, k.ID)
		fmt.Fprintf(out, "  %s\n", secret)
		color.New(color.FgYellow).Fprintln(out, "  Store this secret now; it cannot be shown again.")
		return nil
	},
}

var keyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("key", args[0])
		if err != nil {
			return err
		}
		svc, err := authService()
		if err != nil {
			return err
		}
		if err := svc.RevokeKey(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to revoke key: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Revoked key %s\n", id)
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:     "list <user-id>",
	Aliases: []string{"ls"},
	Short:   "List the keys of a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		svc, err := authService()
		if err != nil {
			return err
		}
		keys, err := svc.ListKeys(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No keys found.")
			return nil
		}
		faint := color.New(color.Faint)
		for _, k := range keys {
			state := color.GreenString("active ")
			if !k.IsActive {
				state = color.RedString("revoked")
			}
			fmt.Fprintf(out, "%s %s %s %s%s\n",
				faint.Sprint(k.ID),
				k.KeyPrefix,
				state,
				k.Name,
				faint.Sprint(keyDetails(k.ExpiresAt, k.LastUsedAt)))
		}
		return nil
	},
}

func keyDetails(expires, lastUsed *time.Time) string {
	var parts []string
	if expires != nil {
		parts = append(parts, "expires "+expires.Format(time.RFC3339))
	}
	if lastUsed != nil {
		parts = append(parts, "last used "+lastUsed.Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// keyOptions turns the create flags into auth.KeyOptions. --expires takes
// an RFC 3339 time or a duration from now.
func keyOptions(now time.Time) (auth.KeyOptions, error) {
	var opts auth.KeyOptions
	if keyExpires != "" {
		at, err := time.Parse(time.RFC3339, keyExpires)
		if err != nil {
			d, derr := time.ParseDuration(keyExpires)
			if derr != nil || d <= 0 {
				return opts, fmt.Errorf("invalid --expires %q: want RFC 3339 time or positive duration", keyExpires)
			}
			at = now.Add(d)
		}
		at = at.UTC()
		opts.ExpiresAt = &at
	}
	if keyRateLimit != 0 {
		if keyRateLimit < 0 {
			return opts, errors.New("--rate-limit must be > 0")
		}
		n := keyRateLimit
		opts.RateLimitPerHour = &n
	}
	if keyPermissions != "" {
		if !json.Valid([]byte(keyPermissions)) {
			return opts, errors.New("--permissions must be valid JSON")
		}
		opts.Permissions = json.RawMessage(keyPermissions)
	}
	return opts, nil
}

func authService() (*auth.Service, error) {
	conn, err := openDB()
	if err != nil {
		return nil, err
	}
	return auth.NewServiceDB(conn, cfg.Auth.Pepper, sugar), nil
}

func init() {
	keyCreateCmd.Flags().StringVar(&keyName, "name", "", "label shown in key listings")
	keyCreateCmd.Flags().StringVar(&keyExpires, "expires", "", "expiry as RFC 3339 time or duration (e.g. 720h)")
	keyCreateCmd.Flags().IntVar(&keyRateLimit, "rate-limit", 0, "requests per hour for this key (default: service limit)")
	keyCreateCmd.Flags().StringVar(&keyPermissions, "permissions", "", "permissions JSON stored with the key")
	keyCmd.AddCommand(keyCreateCmd, keyRevokeCmd, keyListCmd)
	rootCmd.AddCommand(keyCmd)
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"practitrack.com/practitrack/security"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		identity security.StudentIdentity
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed student token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.SigningSecret) == 0 {
				return errors.New("PRACTITRACK_SIGNING_SECRET is not set")
			}
			token, err := security.CreateStudentToken(&identity, a.cfg.SigningSecret, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().IntVar(&identity.ID, "student", 0, "student id (nameid claim)")
	cmd.Flags().StringVar(&identity.UserName, "username", "", "unique_name claim")
	cmd.Flags().StringVar(&identity.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&identity.DeviceID, "device", "cli", "sid claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

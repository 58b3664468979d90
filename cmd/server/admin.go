package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"techanswers/internal/service"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative tasks",
	}
	cmd.AddCommand(adminCreateCmd())
	cmd.AddCommand(adminUnblockCmd())
	return cmd
}

func adminCreateCmd() *cobra.Command {
	var (
		in    service.RegisterInput
		super bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.services.Users.CreateAdmin(cmd.Context(), in, super)
			if err != nil {
				var verr *service.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("%s: %s", verr.Field, verr.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d, super admin: %t)\n", user.Email, user.ID, user.IsSuperAdmin)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Username, "username", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().BoolVar(&super, "super", false, "grant super admin rights")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func adminUnblockCmd() *cobra.Command {
	var req service.UnblockRequest
	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Lift a brute-force lockout by row id, ip or fingerprint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.services.Guard.Unblock(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) unblocked\n", n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&req.ID, "id", 0, "brute-force row id")
	cmd.Flags().StringVar(&req.IP, "ip", "", "client ip")
	cmd.Flags().StringVar(&req.Fingerprint, "fingerprint", "", "client fingerprint")
	return cmd
}

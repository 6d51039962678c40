package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/auth"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

var adminUser string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "One-off maintenance of a user's ledger",
}

var (
	templateReq expense.TemplateRequest

	adminTemplateCmd = &cobra.Command{
		Use:   "template",
		Short: "Copy one month into another",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsUser(cmd.Context(), adminUser, func(ctx context.Context, svc *Services) error {
				res, err := svc.Expenses.ApplyTemplate(ctx, templateReq)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
)

var (
	clearMonth, clearYear int
	clearConfirm          bool

	adminClearMonthCmd = &cobra.Command{
		Use:   "clear-month",
		Short: "Delete every expense of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearConfirm {
				return internal.ErrConfirmRequired
			}
			return runAsUser(cmd.Context(), adminUser, func(ctx context.Context, svc *Services) error {
				n, err := svc.Expenses.ClearMonth(ctx, clearMonth, clearYear)
				if err != nil {
					return err
				}
				return printJSON(expense.ClearMonthResult{Deleted: n})
			})
		},
	}
)

var (
	orphansCleanup bool

	adminOrphansCmd = &cobra.Command{
		Use:   "orphans",
		Short: "List, or with --cleanup delete, expenses whose category is gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsUser(cmd.Context(), adminUser, func(ctx context.Context, svc *Services) error {
				if orphansCleanup {
					n, err := svc.Categories.CleanupOrphanedExpenses(ctx)
					if err != nil {
						return err
					}
					return printJSON(map[string]int{"removed": n})
				}
				orphans, err := svc.Categories.FindOrphanedExpenses(ctx)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"count": len(orphans), "expenses": orphans})
			})
		},
	}
)

var (
	tokenEmail string
	tokenTTL   time.Duration

	adminTokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the jwt auth provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminUser == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			if cfg.Security.AuthProvider != internal.AuthProviderJWT {
				return fmt.Errorf("tokens are issued by %s, not by this service", cfg.Security.AuthProvider)
			}
			ttl := cfg.Security.AccessTokenDuration
			if tokenTTL > 0 {
				ttl = tokenTTL
			}
			token, err := auth.NewJWTVerifier(cfg.Security.JWTSecret, ttl).GenerateAccessToken(adminUser, tokenEmail)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	adminCmd.PersistentFlags().StringVarP(&adminUser, "user", "u", "", "user id to act for")

	adminTemplateCmd.Flags().IntVar(&templateReq.SourceMonth, "from-month", 0, "source month")
	adminTemplateCmd.Flags().IntVar(&templateReq.SourceYear, "from-year", 0, "source year")
	adminTemplateCmd.Flags().IntVar(&templateReq.TargetMonth, "to-month", 0, "target month")
	adminTemplateCmd.Flags().IntVar(&templateReq.TargetYear, "to-year", 0, "target year")
	adminTemplateCmd.Flags().BoolVar(&templateReq.KeepCardLinks, "keep-card-links", true, "carry card links into the copy")
	adminTemplateCmd.Flags().BoolVar(&templateReq.KeepRecurring, "keep-recurring", false, "keep recurring expenses as they are instead of resetting them")
	adminTemplateCmd.Flags().BoolVar(&templateReq.KeepPagoAnual, "keep-pago-anual", true, "with --keep-recurring, keep annual payments")
	adminTemplateCmd.Flags().BoolVar(&templateReq.KeepBonificado, "keep-bonificado", true, "with --keep-recurring, keep waived expenses")

	adminClearMonthCmd.Flags().IntVar(&clearMonth, "month", 0, "month to clear")
	adminClearMonthCmd.Flags().IntVar(&clearYear, "year", 0, "year to clear")
	adminClearMonthCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "confirm the deletion")

	adminOrphansCmd.Flags().BoolVar(&orphansCleanup, "cleanup", false, "delete the orphaned expenses")

	adminTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	adminTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to security.access_token_duration")

	adminCmd.AddCommand(adminTemplateCmd, adminClearMonthCmd, adminOrphansCmd, adminTokenCmd)
	rootCmd.AddCommand(adminCmd)
}

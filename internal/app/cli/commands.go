package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"appraisal/internal/app/server"
	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/output"
	"appraisal/internal/platform/pdf"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			stores, err := server.OpenStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer stores.Close()
			e.ui.Success("migrations applied (%s)", cfg.StoreDriver)
			return nil
		},
	}
}

func newTokenCmd(e *env) *cobra.Command {
	var (
		claims auth.Claims
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed development token",
		Long: `Mint an HS256 token with the configured JWT_SECRET. Intended for local
development and smoke tests; production tokens come from the identity provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			if claims.UserID == "" {
				return fmt.Errorf("--user is required")
			}
			tok, err := auth.GenerateToken(cfg.JWTSecret, claims, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.ui.Out, tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "user", "", "User id (uid claim)")
	cmd.Flags().StringVar(&claims.EmployeeID, "employee", "", "Directory employee id (eid claim)")
	cmd.Flags().StringVar(&claims.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&claims.RoleName, "role", auth.RoleEmployee, "Role claim (employee, manager, hr, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "Token lifetime")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <appraisal-id>",
		Short: "Show an appraisal with its ratings and comment ledgers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "appraisal id")
			if err != nil {
				return err
			}
			cfg, err := e.config()
			if err != nil {
				return err
			}
			stores, err := server.OpenStores(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			a, err := stores.Appraisals.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printAppraisal(e.ui, a)
			return nil
		},
	}
}

func printAppraisal(ui *output.UI, a appraisal.Appraisal) {
	fmt.Fprintf(ui.Out, "Appraisal   %s\n", output.Cyan(a.ID))
	fmt.Fprintf(ui.Out, "Employee    %s\n", a.EmployeeID)
	fmt.Fprintf(ui.Out, "Period      %s to %s\n", day(a.Period.Start), day(a.Period.End))
	fmt.Fprintf(ui.Out, "Status      %s (v%d)\n", output.StatusColor(a.Status), a.Version)
	fmt.Fprintf(ui.Out, "Approvals   supervisor %s, reviewer %s\n", a.SupervisorApproval, a.ReviewerApproval)
	fmt.Fprintf(ui.Out, "Overall     %s\n\n", output.RatingColor(a.OverallRating))

	if len(a.Categories) > 0 {
		table := ui.Table([]string{"Category", "Rating", "Weight", "Comment"})
		for _, c := range a.Categories {
			table.Append([]string{c.Name, output.RatingColor(c.Rating), fmt.Sprintf("%g", c.Weight), c.Comment})
		}
		table.Render()
		fmt.Fprintln(ui.Out)
	}

	for _, role := range appraisal.LedgerRoles {
		entries := a.Comments.List(role)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(ui.Out, "%s comments\n", strings.ToUpper(role[:1])+role[1:])
		table := ui.Table([]string{"Seq", "When", "Action", "Author", "Comment"})
		for _, entry := range entries {
			author := entry.AuthorName
			if author == "" {
				author = entry.AuthorID
			}
			if entry.ViaOverride {
				author += " (HR override)"
			}
			table.Append([]string{
				fmt.Sprint(entry.Seq),
				entry.Timestamp.Format(time.RFC3339),
				entry.Action,
				author,
				entry.CommentText,
			})
		}
		table.Render()
		fmt.Fprintln(ui.Out)
	}
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func newExportCmd(e *env) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <appraisal-id>",
		Short: "Export an appraisal as PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "appraisal id")
			if err != nil {
				return err
			}
			cfg, err := e.config()
			if err != nil {
				return err
			}
			stores, err := server.OpenStores(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			a, err := stores.Appraisals.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = "appraisal-" + a.ID + ".pdf"
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := pdf.Render(f, a); err != nil {
				_ = f.Close()
				return fmt.Errorf("render pdf: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			e.ui.Success("wrote %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default appraisal-<id>.pdf)")
	return cmd
}

func newDirectoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "directory <employee-id>",
		Short: "Look up an employee with their manager and reviewer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "employee id")
			if err != nil {
				return err
			}
			cfg, err := e.config()
			if err != nil {
				return err
			}
			dir, err := server.OpenDirectory(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			emp, err := dir.GetEmployee(ctx, id)
			if err != nil {
				return err
			}
			table := e.ui.Table([]string{"Relation", "ID", "User", "Name", "Email"})
			table.Append([]string{"employee", emp.ID, emp.UserID, emp.Name, emp.Email})
			if mgr, err := dir.GetManagerOf(ctx, id); err == nil {
				table.Append([]string{"manager", mgr.ID, mgr.UserID, mgr.Name, mgr.Email})
			} else {
				e.ui.Warning("manager: %v", err)
			}
			if rev, err := dir.GetReviewerOf(ctx, id); err == nil {
				table.Append([]string{"reviewer", rev.ID, rev.UserID, rev.Name, rev.Email})
			} else {
				e.ui.Warning("reviewer: %v", err)
			}
			table.Render()
			return nil
		},
	}
}

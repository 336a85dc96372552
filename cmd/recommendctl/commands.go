package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/recommend-backend/internal/app"
	"github.com/yungbote/recommend-backend/internal/data/db"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
	"github.com/yungbote/recommend-backend/internal/realtime"
	"github.com/yungbote/recommend-backend/internal/services"
)

var (
	exportActivity string
	exportUserData bool
	exportOut      string

	importCourse string
	importFile   string

	grantUser       string
	grantEmail      string
	grantActivity   string
	grantCapability string

	tokenUser string
	tokenTTL  time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.LoadEnv()
		log, err := logger.New(app.LogMode())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()
		cfg := app.LoadConfig(log)
		theDB, err := app.OpenDB(log, cfg)
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAll(theDB); err != nil {
			return err
		}
		log.Info("Migrations applied", "driver", cfg.DBDriver)
		return nil
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Email every due scheduled request once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			n, err := a.Services.Dispatch.EmailScheduled(rootCtx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d request(s)\n", n)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an activity backup archive as yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		activityID, err := parseID("activity", exportActivity)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			archive, err := a.Services.Backup.Export(rootCtx, services.SystemActor(), activityID, exportUserData)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create %s: %w", exportOut, err)
				}
				defer f.Close()
				out = f
			}
			return services.EncodeArchive(out, archive)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a backup archive into a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID("course", importCourse)
		if err != nil {
			return err
		}
		if importFile == "" {
			return fmt.Errorf("--file is required")
		}
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open %s: %w", importFile, err)
		}
		defer f.Close()
		archive, err := services.DecodeArchive(f)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			activity, err := a.Services.Backup.Import(rootCtx, services.SystemActor(), archive, courseID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored activity %s\n", activity.ID)
			return nil
		})
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant a capability to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeGrant(true)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a capability from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeGrant(false)
	},
}

func changeGrant(grant bool) error {
	userID, err := parseID("user", grantUser)
	if err != nil {
		return err
	}
	var activityID *uuid.UUID
	if grantActivity != "" {
		id, err := parseID("activity", grantActivity)
		if err != nil {
			return err
		}
		activityID = &id
	}
	capability := types.Capability(strings.TrimSpace(grantCapability))
	return withApp(func(a *app.App) error {
		if !grant {
			return a.Services.Access.Revoke(rootCtx, services.SystemActor(), userID, activityID, capability)
		}
		if email := strings.TrimSpace(grantEmail); email != "" {
			if err := a.Repos.User.Upsert(dbctx.Context{Ctx: rootCtx}, &types.User{ID: userID, Email: email}); err != nil {
				return fmt.Errorf("upsert user: %w", err)
			}
		}
		return a.Services.Access.Grant(rootCtx, services.SystemActor(), userID, activityID, capability)
	})
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for a user (development only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID("user", tokenUser)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			u, err := a.Repos.User.GetByID(dbctx.Context{Ctx: rootCtx}, userID)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %s: %w", userID, services.ErrNotFound)
			}
			tok, err := a.Services.Auth.IssueToken(u, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print realtime bus messages until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			err := a.Clients.Bus.StartForwarder(rootCtx, func(m realtime.Message) {
				_ = enc.Encode(m)
			})
			if err != nil {
				return err
			}
			if a.Clients.Redis == nil {
				a.Log.Warn("No REDIS_ADDR; only messages from this process are visible")
			}
			<-rootCtx.Done()
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportActivity, "activity", "", "activity id")
	exportCmd.Flags().BoolVar(&exportUserData, "userdata", false, "include requests and replies")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	importCmd.Flags().StringVar(&importCourse, "course", "", "target course id")
	importCmd.Flags().StringVar(&importFile, "file", "", "archive path")

	for _, c := range []*cobra.Command{grantCmd, revokeCmd} {
		c.Flags().StringVar(&grantUser, "user", "", "user id")
		c.Flags().StringVar(&grantActivity, "activity", "", "activity id (omit for site-wide)")
		c.Flags().StringVar(&grantCapability, "capability", "", "capability name")
	}
	grantCmd.Flags().StringVar(&grantEmail, "email", "", "create or update the user with this email first")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func parseID(name, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}

package main

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mossy-p/ptt-signaling/config"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/mossy-p/ptt-signaling/internal/redis"
	"github.com/spf13/cobra"
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "List users recorded in the Redis presence mirror",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		if !cfg.Redis.Enabled() {
			return errors.New("REDIS_HOST is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		mirror, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer mirror.Close()

		report, err := loadPresence(ctx, mirror)
		if err != nil {
			return err
		}
		renderPresence(cmd.OutOrStdout(), report)
		return nil
	},
}

type presenceReport struct {
	Users      []*models.User
	Security   int
	Management int
}

func loadPresence(ctx context.Context, mirror *redis.Presence) (*presenceReport, error) {
	users, err := mirror.Users(ctx)
	if err != nil {
		return nil, err
	}
	security, err := mirror.Count(ctx, models.RoleSecurity)
	if err != nil {
		return nil, err
	}
	management, err := mirror.Count(ctx, models.RoleManagement)
	if err != nil {
		return nil, err
	}

	report := &presenceReport{Security: security, Management: management}
	for _, user := range users {
		report.Users = append(report.Users, user)
	}
	sort.Slice(report.Users, func(i, j int) bool {
		return report.Users[i].ConnectedAt.Before(report.Users[j].ConnectedAt)
	})
	return report, nil
}

func renderPresence(w io.Writer, report *presenceReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Role", "Socket", "Registered"})
	for _, user := range report.Users {
		t.AppendRow(table.Row{user.Name, string(user.Role), user.SocketID, user.ConnectedAt.Format(time.RFC3339)})
	}
	t.AppendFooter(table.Row{"security " + strconv.Itoa(report.Security), "management " + strconv.Itoa(report.Management), "", strconv.Itoa(len(report.Users))})
	t.SetStyle(table.StyleLight)
	t.Render()
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pulsehq/pulse-ui-api/internal/data"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

const defaultProfileTimeout = time.Minute

type setRoleOptions struct {
	UserID string
	Role   domainauth.Role
}

type setTeamOptions struct {
	UserID string
	TeamID string
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultProfileTimeout, func(ctx context.Context, db *sql.DB) error {
		profiles := data.NewProfileRepo(db)
		if setErr := profiles.SetRole(ctx, opts.UserID, string(opts.Role)); setErr != nil {
			return fmt.Errorf("set role: %w", setErr)
		}

		cmdCtx.Logger.Info("role updated", "user_id", opts.UserID, "role", opts.Role)
		return nil
	})
}

func runSetTeam(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetTeamFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultProfileTimeout, func(ctx context.Context, db *sql.DB) error {
		teams := data.NewTeamRepo(db)
		team, getErr := teams.GetByID(ctx, opts.TeamID)
		if getErr != nil {
			return fmt.Errorf("look up team: %w", getErr)
		}

		profiles := data.NewProfileRepo(db)
		if setErr := profiles.SetTeam(ctx, opts.UserID, team.ID); setErr != nil {
			return fmt.Errorf("set team: %w", setErr)
		}

		cmdCtx.Logger.Info("team assigned", "user_id", opts.UserID, "team_id", team.ID, "team_name", team.Name)
		return nil
	})
}

func runListTeams(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultProfileTimeout, func(ctx context.Context, db *sql.DB) error {
		teams := data.NewTeamRepo(db)
		profiles := data.NewProfileRepo(db)

		all, listErr := teams.List(ctx)
		if listErr != nil {
			return fmt.Errorf("list teams: %w", listErr)
		}
		if len(all) == 0 {
			return writeln(os.Stdout, "(no teams found)")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if err := writeln(w, "ID\tName\tMembers"); err != nil {
			return fmt.Errorf("write teams header: %w", err)
		}
		for _, team := range all {
			members, memberErr := profiles.ListUserIDsByTeam(ctx, team.ID)
			if memberErr != nil {
				return fmt.Errorf("list members for team %s: %w", team.ID, memberErr)
			}
			if err := writef(w, "%s\t%s\t%d\n", team.ID, team.Name, len(members)); err != nil {
				return fmt.Errorf("write team row: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush teams table: %w", err)
		}
		return nil
	})
}

func parseSetRoleFlags(args []string) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var userID, rawRole string
	fs.StringVar(&userID, "user", "", "User ID whose profile to update (required)")
	fs.StringVar(&rawRole, "role", "", "Role to assign: admin, manager, or employee (required)")

	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return setRoleOptions{}, errors.New("--user is required")
	}
	role, ok := domainauth.ParseRole(rawRole)
	if !ok {
		return setRoleOptions{}, fmt.Errorf("invalid role %q: must be one of admin, manager, employee", rawRole)
	}

	return setRoleOptions{UserID: userID, Role: role}, nil
}

func parseSetTeamFlags(args []string) (setTeamOptions, error) {
	fs := flag.NewFlagSet("set-team", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var userID, teamID string
	fs.StringVar(&userID, "user", "", "User ID whose profile to update (required)")
	fs.StringVar(&teamID, "team", "", "Team ID to assign (required)")

	if err := fs.Parse(args); err != nil {
		return setTeamOptions{}, err
	}

	userID = strings.TrimSpace(userID)
	teamID = strings.TrimSpace(teamID)
	if userID == "" {
		return setTeamOptions{}, errors.New("--user is required")
	}
	if teamID == "" {
		return setTeamOptions{}, errors.New("--team is required")
	}

	return setTeamOptions{UserID: userID, TeamID: teamID}, nil
}

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gwarden/gwarden/internal/action"
	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/internal/warn"
	"github.com/gwarden/gwarden/pkg/log"
)

var errInvalidUserID = errors.New("invalid user id")

func parseUserID(arg string) (uint64, error) {
	userID, errParse := strconv.ParseUint(arg, 10, 64)
	if errParse != nil || userID == 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidUserID, arg)
	}

	return userID, nil
}

func warnCmd() *cobra.Command {
	var moderatorID uint64

	cmd := &cobra.Command{
		Use:   "warn",
		Short: "Manage a user's warnings",
	}

	cmd.PersistentFlags().Uint64Var(&moderatorID, "moderator", 0, "Moderator user id to attribute the change to")

	addCmd := &cobra.Command{
		Use:   "add <user_id> <reason...>",
		Short: "Issue a warning to a user",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, errID := parseUserID(args[0])
			if errID != nil {
				return errID
			}

			app, errApp := NewWarden()
			if errApp != nil {
				return errApp
			}

			defer func() {
				if errClose := app.Close(cmd.Context()); errClose != nil {
					slog.Error("Error closing", log.ErrAttr(errClose))
				}
			}()

			if errInit := app.InitStoreOnly(cmd.Context()); errInit != nil {
				return errInit
			}

			reason := strings.Join(args[1:], " ")

			warning, ordinal, errWarn := app.warnings.Warn(cmd.Context(), subjectID, moderatorID, reason)
			if errWarn != nil {
				return errWarn
			}

			app.collector.WarningsIssuedCounter.Inc()

			act := action.New(subjectID, action.Warn, reason, moderatorID).WithWarningID(warning.ID)
			if errRecord := app.actions.Record(cmd.Context(), act); errRecord != nil {
				return errRecord
			}

			cmd.Printf("Issued %s warning to %d, id %s\n", ordinal, subjectID, warning.ID)

			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <user_id> <warning_id>",
		Short: "Revoke a single warning by id",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, errID := parseUserID(args[0])
			if errID != nil {
				return errID
			}

			app, errApp := NewWarden()
			if errApp != nil {
				return errApp
			}

			defer func() {
				if errClose := app.Close(cmd.Context()); errClose != nil {
					slog.Error("Error closing", log.ErrAttr(errClose))
				}
			}()

			if errInit := app.InitStoreOnly(cmd.Context()); errInit != nil {
				return errInit
			}

			warningID := args[1]

			if errRemove := app.warnings.Remove(cmd.Context(), subjectID, warningID); errRemove != nil {
				if errors.Is(errRemove, database.ErrNoResult) {
					cmd.Printf("%d has no warning with id %s (capitalisation matters)\n", subjectID, warningID)

					return nil
				}

				return errRemove
			}

			act := action.New(subjectID, action.RevokeWarn, "", moderatorID).WithWarningID(warningID)
			if errRecord := app.actions.Record(cmd.Context(), act); errRecord != nil {
				return errRecord
			}

			cmd.Printf("Revoked warning %s from %d\n", warningID, subjectID)

			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <user_id>",
		Short: "Remove all of a user's warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, errID := parseUserID(args[0])
			if errID != nil {
				return errID
			}

			app, errApp := NewWarden()
			if errApp != nil {
				return errApp
			}

			defer func() {
				if errClose := app.Close(cmd.Context()); errClose != nil {
					slog.Error("Error closing", log.ErrAttr(errClose))
				}
			}()

			if errInit := app.InitStoreOnly(cmd.Context()); errInit != nil {
				return errInit
			}

			removed, errClear := app.warnings.RemoveAll(cmd.Context(), subjectID)
			if errClear != nil {
				if errors.Is(errClear, database.ErrNoResult) {
					cmd.Printf("%d has no warnings\n", subjectID)

					return nil
				}

				return errClear
			}

			act := action.New(subjectID, action.AllWarningsRemoved, "", moderatorID)
			if errRecord := app.actions.Record(cmd.Context(), act); errRecord != nil {
				return errRecord
			}

			cmd.Printf("Removed %d warnings from %d\n", removed, subjectID)

			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <user_id> [page]",
		Short: "Show one page of a user's warnings",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, errID := parseUserID(args[0])
			if errID != nil {
				return errID
			}

			page := 1

			if len(args) == 2 { //nolint:mnd
				parsed, errPage := strconv.Atoi(args[1])
				if errPage != nil {
					return errors.Join(errPage, warn.ErrInvalidPage)
				}

				page = parsed
			}

			app, errApp := NewWarden()
			if errApp != nil {
				return errApp
			}

			defer func() {
				if errClose := app.Close(cmd.Context()); errClose != nil {
					slog.Error("Error closing", log.ErrAttr(errClose))
				}
			}()

			if errInit := app.InitStoreOnly(cmd.Context()); errInit != nil {
				return errInit
			}

			result, errPage := app.warnings.GetPage(cmd.Context(), subjectID, page)
			if errPage != nil {
				if errors.Is(errPage, database.ErrNoResult) {
					cmd.Printf("%d has no warnings\n", subjectID)

					return nil
				}

				return errPage
			}

			cmd.Printf("Warnings for %d (page %d/%d, %d total)\n", subjectID, result.Number, result.Pages, result.Total)

			for idx, entry := range result.Entries {
				serial := (result.Number-1)*warn.PageSize + idx + 1
				cmd.Printf("#%d: %s - by %d: %s\n", serial, entry.ID, entry.ModeratorID, entry.Reason)
			}

			return nil
		},
	}

	cmd.AddCommand(addCmd, removeCmd, clearCmd, listCmd)

	return cmd
}

package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gwarden/gwarden/internal/action"
	"github.com/gwarden/gwarden/pkg/datetime"
	"github.com/gwarden/gwarden/pkg/log"
)

func historyCmd() *cobra.Command {
	var (
		moderatorID uint64
		durationArg string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or append to a user's moderation action log",
	}

	showCmd := &cobra.Command{
		Use:   "show <user_id>",
		Short: "Show a user's moderation action log, oldest first",
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

			actions, errHistory := app.actions.History(cmd.Context(), subjectID)
			if errHistory != nil {
				return errHistory
			}

			if len(actions) == 0 {
				cmd.Printf("%d has no recorded actions\n", subjectID)

				return nil
			}

			cmd.Printf("Action log for %d (%d entries)\n", subjectID, len(actions))

			for _, act := range actions {
				line := time.Unix(act.CreatedOn, 0).UTC().Format(time.RFC3339) + " " + act.Kind

				if act.Reason != "" {
					line += ": " + act.Reason
				}

				if act.WarningID != "" {
					line += " [" + act.WarningID + "]"
				}

				if act.Duration > 0 {
					line += " (" + (time.Duration(act.Duration) * time.Second).String() + ")"
				}

				cmd.Printf("%s (by %d)\n", line, act.ModeratorID)
			}

			return nil
		},
	}

	recordCmd := &cobra.Command{
		Use:   "record <user_id> <kind> [reason...]",
		Short: "Append an action taken outside the bot, eg. a manual ban",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, errID := parseUserID(args[0])
			if errID != nil {
				return errID
			}

			kind, errKind := action.ParseKind(args[1])
			if errKind != nil {
				return errKind
			}

			act := action.New(subjectID, kind, strings.Join(args[2:], " "), moderatorID)

			if durationArg != "" {
				duration, errDuration := datetime.ParseUserDuration(durationArg)
				if errDuration != nil {
					return errDuration
				}

				act = act.WithDuration(duration)
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

			if errRecord := app.actions.Record(cmd.Context(), act); errRecord != nil {
				return errRecord
			}

			cmd.Printf("Recorded %s against %d\n", act.Kind, subjectID)

			return nil
		},
	}

	recordCmd.Flags().Uint64Var(&moderatorID, "moderator", 0, "Moderator user id to attribute the action to")
	recordCmd.Flags().StringVar(&durationArg, "duration", "", "Duration for timed actions, eg. \"1w 3d 5h\"")

	cmd.AddCommand(showCmd, recordCmd)

	return cmd
}

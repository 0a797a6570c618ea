package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
)

func newNotificationsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List and acknowledge notifications",
	}

	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			params := api.Params{}
			if unread {
				params["is_read"] = "false"
			}
			ns, err := e.api.Notifications.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return e.printer.print(ns, func() string { return notificationsTable(ns) })
		}),
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	var all bool
	read := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark a notification, or --all, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			switch {
			case all:
				if err := e.api.Notifications.MarkAllRead(cmd.Context()); err != nil {
					return err
				}
				e.printer.message("All notifications marked as read.")
			case len(args) == 1:
				if err := e.api.Notifications.MarkRead(cmd.Context(), args[0]); err != nil {
					return err
				}
				e.printer.message("Notification %s marked as read.", args[0])
			default:
				return fmt.Errorf("give a notification id or --all")
			}
			return nil
		}),
	}
	read.Flags().BoolVar(&all, "all", false, "mark every notification as read")

	cmd.AddCommand(list, read)
	return cmd
}

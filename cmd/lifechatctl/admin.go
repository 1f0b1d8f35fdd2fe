package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matheus3301/lifechat/internal/instance"
	"github.com/matheus3301/lifechat/internal/store"
)

// newAdminCmd groups commands that edit the instance database directly.
// They work whether or not the daemon is running.
func newAdminCmd(g *globalFlags) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage users, rooms and settings in the instance database",
	}
	admin.AddCommand(newAdminUserCmd(g), newAdminRoomCmd(g), newAdminSettingsCmd(g), newAdminIntimacyCmd(g))
	return admin
}

func (g *globalFlags) openStore() (*store.DB, error) {
	name, err := g.resolveInstance()
	if err != nil {
		return nil, err
	}
	if err := instance.EnsureDir(name); err != nil {
		return nil, err
	}
	db, err := store.Open(instance.DBPath(name))
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newAdminUserCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "user <name>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			id, err := db.CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("user %d: %s\n", id, args[0])
			return nil
		},
	}
}

func newAdminRoomCmd(g *globalFlags) *cobra.Command {
	var name string
	var group bool
	cmd := &cobra.Command{
		Use:   "room <member-id> <member-id> [member-id...]",
		Short: "Create a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			members := make([]int64, len(args))
			for i, a := range args {
				id, err := parseID(a, "member id")
				if err != nil {
					return err
				}
				members[i] = id
			}
			kind := store.RoomDirect
			if group || len(members) > 2 {
				kind = store.RoomGroup
			}
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			id, err := db.CreateRoom(cmd.Context(), kind, name, members...)
			if err != nil {
				return err
			}
			fmt.Printf("room %d (%s) with %d members\n", id, kind, len(members))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "room name")
	cmd.Flags().BoolVar(&group, "group", false, "create a group room even with two members")
	return cmd
}

func newAdminSettingsCmd(g *globalFlags) *cobra.Command {
	var (
		mode          string
		threshold     int
		notifications string
	)
	cmd := &cobra.Command{
		Use:   "settings <user-id>",
		Short: "Show or change a user's reply and notification settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			s, err := db.Settings(ctx, userID)
			if err != nil {
				return err
			}
			changed := false
			if cmd.Flags().Changed("mode") {
				switch m := store.ReplyMode(mode); m {
				case store.ReplyAuto, store.ReplySuggest:
					s.ReplyMode = m
				default:
					return fmt.Errorf("invalid mode %q: must be AUTO or SUGGEST", mode)
				}
				changed = true
			}
			if cmd.Flags().Changed("threshold") {
				s.AutoReplyThreshold = threshold
				changed = true
			}
			if cmd.Flags().Changed("notifications") {
				on, err := strconv.ParseBool(notifications)
				if err != nil {
					return fmt.Errorf("invalid notifications value %q", notifications)
				}
				s.NotificationsEnabled = on
				changed = true
			}
			if changed {
				if err := db.SaveSettings(ctx, s); err != nil {
					return err
				}
			}
			if g.json {
				outputJSON(s)
				return nil
			}
			fmt.Printf("Reply mode:    %s\n", s.ReplyMode)
			fmt.Printf("Threshold:     %d\n", s.AutoReplyThreshold)
			fmt.Printf("Tone:          %s\n", s.DefaultTone)
			fmt.Printf("Notifications: %v\n", s.NotificationsEnabled)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "reply mode (AUTO or SUGGEST)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "highest intimacy score answered automatically")
	cmd.Flags().StringVar(&notifications, "notifications", "", "enable notifications (true or false)")
	return cmd
}

func newAdminIntimacyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "intimacy <user-id> <friend-id> [score]",
		Short: "Show or set how close a user feels to a friend",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "user id", "friend id")
			if err != nil {
				return err
			}
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			if len(args) == 3 {
				score, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid score %q", args[2])
				}
				if err := db.SetIntimacy(ctx, ids[0], ids[1], score); err != nil {
					return err
				}
			}
			st, ok, err := db.Intimacy(ctx, ids[0], ids[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no friendship recorded")
				return nil
			}
			if g.json {
				outputJSON(st)
				return nil
			}
			fmt.Printf("Score: %d (%s, %s)\n", st.Score, st.Trend, st.Badge)
			return nil
		},
	}
}

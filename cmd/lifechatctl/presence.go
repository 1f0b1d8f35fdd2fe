package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/lifechat/internal/api"
)

func newConnectCmd(g *globalFlags) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "connect <user-id>",
		Short: "Open a live session and print deliveries until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			sess, err := c.Connect(cmd.Context(), userID, sessionID)
			if err != nil {
				return err
			}
			for {
				d, err := sess.Recv()
				if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
					return nil
				}
				if err != nil {
					return err
				}
				if g.json {
					outputJSON(d)
					continue
				}
				printDelivery(d)
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (random when empty)")
	return cmd
}

func printDelivery(d *api.Delivery) {
	switch d.Kind {
	case api.DeliverySession:
		fmt.Printf("connected as session %s\n", d.SessionID)
	case api.DeliveryNotification:
		n := d.Notification
		fmt.Printf("[%s] %s %s: %s\n", n.Timestamp.Format(time.Kitchen), n.Kind, n.Title, n.Body)
	case api.DeliveryMessage:
		m := d.Message
		suffix := ""
		if m.IsAutoReply {
			suffix = " (auto)"
		}
		fmt.Printf("[%s] #%d %s%s: %s\n",
			time.UnixMilli(m.CreatedAtUnixMs).Format(time.Kitchen), m.RoomID, m.SenderName, suffix, m.Content)
		if m.AIInsight != "" {
			fmt.Printf("          ↳ %s\n", m.AIInsight)
		}
	}
}

func newFocusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "focus <session-id> <user-id> <room-id>",
		Short: "Mark a session as viewing a room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:], "user id", "room id")
			if err != nil {
				return err
			}
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := c.SetFocus(ctx, args[0], ids[0], ids[1]); err != nil {
				return err
			}
			fmt.Printf("session %s is viewing room %d\n", args[0], ids[1])
			return nil
		},
	}
}

func newUnfocusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unfocus <session-id>",
		Short: "Clear a session's focused room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			return c.ClearFocus(ctx, args[0])
		},
	}
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/lifechat/internal/api"
	"github.com/matheus3301/lifechat/internal/instance"
	"github.com/matheus3301/lifechat/internal/lock"
)

const rpcTimeout = 10 * time.Second

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func parseIDs(args []string, what ...string) ([]int64, error) {
	ids := make([]int64, len(what))
	for i := range what {
		id, err := parseID(args[i], what[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the instance daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := g.resolveInstance()
			if err != nil {
				return err
			}
			owner, running := lock.Holder(instance.LockPath(name))
			socket := instance.SocketPath(name)
			if running && owner.Socket != "" {
				socket = owner.Socket
			}
			if g.json {
				outputJSON(map[string]any{"instance": name, "running": running, "pid": owner.PID, "socket": socket, "started": owner.Started})
				return nil
			}
			fmt.Printf("Instance: %s\n", name)
			if running {
				fmt.Printf("Daemon:   running (pid %d, since %s)\n", owner.PID, owner.Started.Local().Format(time.DateTime))
			} else {
				fmt.Println("Daemon:   stopped")
			}
			fmt.Printf("Socket:   %s\n", socket)
			return nil
		},
	}
}

func newSendCmd(g *globalFlags) *cobra.Command {
	var autoReply bool
	cmd := &cobra.Command{
		Use:   "send <room-id> <sender-id> <text...>",
		Short: "Submit a message to a room",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "room id", "sender id")
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
			resp, err := c.Submit(ctx, &api.SubmitMessageRequest{
				RoomID:      ids[0],
				SenderID:    ids[1],
				Content:     strings.Join(args[2:], " "),
				IsAutoReply: autoReply,
			})
			if err != nil {
				return err
			}
			if g.json {
				outputJSON(resp)
				return nil
			}
			m := resp.Message
			fmt.Printf("Message %d stored in room %d\n", m.ID, m.RoomID)
			if m.EventType != "NONE" {
				fmt.Printf("Event:   %s\n", m.EventType)
				fmt.Printf("Insight: %s\n", m.AIInsight)
			}
			fmt.Printf("Stages:  %s\n", strings.Join(resp.Stages, " → "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoReply, "auto-reply", false, "mark the message as an automated reply")
	return cmd
}

func newSuggestCmd(g *globalFlags) *cobra.Command {
	var eventType string
	cmd := &cobra.Command{
		Use:   "suggest <room-id> <user-id> <friend-id>",
		Short: "Check whether the user's settings allow an automatic reply",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "room id", "user id", "friend id")
			if err != nil {
				return err
			}
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			resp, err := c.SuggestAutoReply(ctx, &api.SuggestAutoReplyRequest{
				RoomID: ids[0], UserID: ids[1], FriendID: ids[2], EventType: eventType,
			})
			if err != nil {
				return err
			}
			if g.json {
				outputJSON(resp)
				return nil
			}
			if resp.ShouldReply {
				fmt.Printf("Reply: %s\n", resp.Message)
			} else {
				fmt.Println("No automatic reply.")
			}
			fmt.Printf("Reason: %s\n", resp.Reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "event", "", "event type (wedding, birthday, funeral, reunion)")
	return cmd
}

func newRepliesCmd(g *globalFlags) *cobra.Command {
	var eventType string
	cmd := &cobra.Command{
		Use:   "replies <room-id> <user-id> <friend-id>",
		Short: "Suggest replies in the user's own style",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "room id", "user id", "friend id")
			if err != nil {
				return err
			}
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			resp, err := c.GenerateReplies(ctx, &api.GenerateRepliesRequest{
				RoomID: ids[0], UserID: ids[1], FriendID: ids[2], EventType: eventType,
			})
			if err != nil {
				return err
			}
			if g.json {
				outputJSON(resp)
				return nil
			}
			for i, r := range resp.Replies {
				mark := " "
				if i == resp.RecommendedIndex {
					mark = "*"
				}
				fmt.Printf("%s [%s] %s\n", mark, r.Label, r.Message)
			}
			if resp.Insight != "" {
				fmt.Printf("\n%s\n", resp.Insight)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "event", "", "event type (wedding, birthday, funeral, reunion)")
	return cmd
}

func newRelationshipCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relationship <room-id> <user-id> <friend-id>",
		Short: "Summarise a friendship from its conversation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "room id", "user id", "friend id")
			if err != nil {
				return err
			}
			c, err := g.dial()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			resp, err := c.AnalyzeRelationship(ctx, &api.AnalyzeRelationshipRequest{
				RoomID: ids[0], UserID: ids[1], FriendID: ids[2],
			})
			if err != nil {
				return err
			}
			if g.json {
				outputJSON(resp)
				return nil
			}
			r := resp.Relationship
			fmt.Printf("Relationship: %s (%s)\n", r.RelationshipType, r.IntimacyLevel)
			fmt.Printf("Style:        %s\n", r.CommunicationStyle)
			fmt.Printf("Last contact: %s\n", r.LastContactPeriod)
			fmt.Printf("Tone:         %s\n", r.EmotionalTone)
			if len(r.KeyTopics) > 0 {
				fmt.Printf("Topics:       %s\n", strings.Join(r.KeyTopics, ", "))
			}
			fmt.Printf("\n%s\n", r.Summary)
			return nil
		},
	}
}

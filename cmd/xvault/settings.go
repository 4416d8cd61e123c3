// ABOUTME: Settings commands for home-feed capture and the assistant configuration
// ABOUTME: Without flags each command prints the current value as JSON

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change vault settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := store.ListSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list settings: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No settings stored")
			return nil
		}
		for _, s := range list {
			fmt.Printf("%s %s\n", bold(s.Key), string(s.Value))
		}
		return nil
	},
}

var homeFeedCmd = &cobra.Command{
	Use:   "home-feed",
	Short: "Show or change home-feed capture thresholds",
	Long: `Show or change home-feed capture.

Posts seen on the home timeline are only captured when home-feed capture is
enabled and they meet the minimum likes and impressions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		hf, err := store.HomeFeed(ctx)
		if err != nil {
			return fmt.Errorf("failed to read home-feed settings: %w", err)
		}

		flags := cmd.Flags()
		if !flags.Changed("enabled") && !flags.Changed("min-likes") && !flags.Changed("min-impressions") {
			return printJSON(hf)
		}
		if flags.Changed("enabled") {
			hf.Enabled, _ = flags.GetBool("enabled")
		}
		if flags.Changed("min-likes") {
			hf.MinLikes, _ = flags.GetInt64("min-likes")
		}
		if flags.Changed("min-impressions") {
			hf.MinImpressions, _ = flags.GetInt64("min-impressions")
		}
		if err := store.SetHomeFeed(ctx, hf); err != nil {
			return fmt.Errorf("failed to save home-feed settings: %w", err)
		}
		return printJSON(hf)
	},
}

var captureFromHomeCmd = &cobra.Command{
	Use:   "capture-from-home [true|false]",
	Short: "Show or toggle capture from the home timeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 1 {
			enabled, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", args[0])
			}
			if err := store.SetCaptureFromHome(ctx, enabled); err != nil {
				return fmt.Errorf("failed to save setting: %w", err)
			}
		}
		enabled, err := store.CaptureFromHome(ctx)
		if err != nil {
			return fmt.Errorf("failed to read setting: %w", err)
		}
		fmt.Println(enabled)
		return nil
	},
}

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Show or change the assistant settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := store.Assistant(ctx)
		if err != nil {
			return fmt.Errorf("failed to read assistant settings: %w", err)
		}

		flags := cmd.Flags()
		changed := false
		if flags.Changed("enabled") {
			a.Enabled, _ = flags.GetBool("enabled")
			changed = true
		}
		for name, dst := range map[string]*string{"provider": &a.Provider, "model": &a.Model, "prompt": &a.Prompt} {
			if flags.Changed(name) {
				*dst, _ = flags.GetString(name)
				changed = true
			}
		}
		if changed {
			if err := store.SetAssistant(ctx, a); err != nil {
				return fmt.Errorf("failed to save assistant settings: %w", err)
			}
		}
		return printJSON(a)
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(homeFeedCmd)
	settingsCmd.AddCommand(captureFromHomeCmd)
	settingsCmd.AddCommand(assistantCmd)

	homeFeedCmd.Flags().Bool("enabled", false, "enable home-feed capture")
	homeFeedCmd.Flags().Int64("min-likes", 0, "minimum likes for a home-feed post")
	homeFeedCmd.Flags().Int64("min-impressions", 0, "minimum impressions for a home-feed post")

	assistantCmd.Flags().Bool("enabled", false, "enable the assistant")
	assistantCmd.Flags().String("provider", "", "assistant provider")
	assistantCmd.Flags().String("model", "", "assistant model")
	assistantCmd.Flags().String("prompt", "", "assistant prompt")
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/httpserver"
	"github.com/fdg312/sourdough-hub/internal/push"
	"github.com/fdg312/sourdough-hub/internal/reminders"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one reminder dispatch tick and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := httpserver.OpenStorage(ctx, cfg, zap.L())
		if err != nil {
			return err
		}
		defer st.Close()

		sender, err := push.NewSenderFromConfig(cfg.Push, zap.L())
		if err != nil {
			return err
		}

		d := reminders.NewDispatcher(st, sender, cfg.Reminders.DispatchInterval, nil, zap.L())
		res := d.Tick(ctx)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var vapidKeysCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for PUSH_MODE=webpush",
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, pub, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
		return err
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(vapidKeysCmd)
}

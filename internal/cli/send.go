package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"bergbridge/internal/network"
	"bergbridge/internal/types"

	"github.com/spf13/cobra"
)

var sendOpts struct {
	addr        string
	deviceType  uint32
	command     string
	commandID   uint32
	payloadFile string
	timeout     time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one command envelope to a bridge and print the response",
	Example: `  bergbridge send --command 0x1 --id 7 --payload print.bin
  bergbridge send --command 0x202 --id 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnvelope()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sendOpts.timeout)
		defer cancel()

		client, err := network.Dial(ctx, sendOpts.addr)
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Send(ctx, env)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "command %s id %d: %s (%#x)\n", env.Header.Command, resp.CommandID, resp.Code, uint32(resp.Code))
		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.addr, "addr", "127.0.0.1:7878", "bridge address")
	f.Uint32Var(&sendOpts.deviceType, "device", uint32(types.DeviceLittlePrinter), "device type")
	f.StringVar(&sendOpts.command, "command", "0x1", "command code (decimal or 0x hex)")
	f.Uint32Var(&sendOpts.commandID, "id", 1, "command id")
	f.StringVar(&sendOpts.payloadFile, "payload", "", "file holding the raw payload blob")
	f.DurationVar(&sendOpts.timeout, "timeout", 10*time.Second, "overall deadline")
	rootCmd.AddCommand(sendCmd)
}

func buildEnvelope() (*types.CommandEnvelope, error) {
	code, err := parseCommandCode(sendOpts.command)
	if err != nil {
		return nil, err
	}

	env := &types.CommandEnvelope{
		Header: types.CommandHeader{
			DeviceType: types.DeviceType(sendOpts.deviceType),
			Command:    code,
			CommandID:  sendOpts.commandID,
		},
	}
	if sendOpts.payloadFile != "" {
		env.Payload, err = os.ReadFile(sendOpts.payloadFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
	}
	return env, nil
}

func parseCommandCode(s string) (types.CommandCode, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid command code %q: %w", s, err)
	}
	return types.CommandCode(v), nil
}

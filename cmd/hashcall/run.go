package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caffeineduck/hashcall/executor"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <guest.wasm>",
	Short: "Run a guest module export",
	Long: `Instantiate a WebAssembly guest with the "crypto" host module and call
one of its exports.

Examples:
  hashcall run actor.wasm --export invoke
  hashcall run fwd.wasm --export hash --arg 0x12 --arg 0 --arg 5 --arg 64 --arg 32 \
      --write 0:68656c6c6f --read 64:32`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("export", "invoke", "Export to call")
	runCmd.Flags().StringSlice("arg", nil, "Integer argument (repeatable, decimal or 0x hex)")
	runCmd.Flags().StringSlice("write", nil, "Write hex bytes before the call: offset:hex (repeatable)")
	runCmd.Flags().StringSlice("read", nil, "Print guest memory after the call: offset:length (repeatable)")
	runCmd.Flags().Duration("timeout", 0, "Execution timeout (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	export, _ := cmd.Flags().GetString("export")
	rawArgs, _ := cmd.Flags().GetStringSlice("arg")
	writes, _ := cmd.Flags().GetStringSlice("write")
	reads, _ := cmd.Flags().GetStringSlice("read")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	binary, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read guest")
	}

	params, err := parseParams(rawArgs)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("timeout") {
		if timeout, err = cfg.timeout(); err != nil {
			return err
		}
	}
	runOpts := []executor.Option{executor.WithTimeout(timeout)}

	for _, spec := range writes {
		offset, data, err := parseWrite(spec)
		if err != nil {
			return err
		}
		runOpts = append(runOpts, executor.WithInput(offset, data))
	}
	for _, spec := range reads {
		offset, length, err := parseRead(spec)
		if err != nil {
			return err
		}
		runOpts = append(runOpts, executor.WithCapture(offset, length))
	}

	exec, err := executor.New(nil, cfg.executorOptions()...)
	if err != nil {
		return err
	}
	defer exec.Close()

	guest := executor.NewGuest(filepath.Base(args[0]), binary)
	result := exec.Run(context.Background(), guest, export, params, runOpts...)
	if result.Error != nil {
		return result.Error
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "results: %v\n", result.Values)
	for i, b := range result.Memory {
		fmt.Fprintf(out, "%s: %s\n", reads[i], hex.EncodeToString(b))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "took %v\n", result.Duration.Round(time.Microsecond))
	return nil
}

func parseParams(raw []string) ([]uint64, error) {
	params := make([]uint64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --arg %q", s)
		}
		params = append(params, v)
	}
	return params, nil
}

func parseWrite(spec string) (uint32, []byte, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, nil, errors.Errorf("invalid write spec %q (expected offset:hex)", spec)
	}
	offset, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "invalid write offset %q", parts[0])
	}
	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return 0, nil, errors.Wrapf(err, "invalid write data %q", parts[1])
	}
	return uint32(offset), data, nil
}

func parseRead(spec string) (uint32, uint32, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("invalid read spec %q (expected offset:length)", spec)
	}
	offset, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid read offset %q", parts[0])
	}
	length, err := strconv.ParseUint(parts[1], 0, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid read length %q", parts[1])
	}
	return uint32(offset), uint32(length), nil
}

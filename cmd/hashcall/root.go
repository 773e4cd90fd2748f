package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cfg is populated by the root command before any subcommand runs.
var cfg = defaultConfig()

var rootCmd = &cobra.Command{
	Use:   "hashcall",
	Short: "Host-side hash syscall for sandboxed WebAssembly guests",
	Long: `hashcall - compute digests for untrusted WebAssembly guests.

Guests import "crypto"."hash" and pass guest-memory pointers; every pointer
and length is validated against the guest's linear memory before use.
Supported algorithms: sha2-256, keccak-256, ripemd-160, blake2b-256,
blake2b-512.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to TOML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := loadConfig(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("no-cache") {
		noCache, _ := flags.GetBool("no-cache")
		loaded.Executor.DiskCache = boolPtr(!noCache)
	}
	if flags.Changed("memory") {
		loaded.Executor.MemoryLimit, _ = flags.GetString("memory")
	}

	level, err := log.ParseLevel(loaded.Log.Level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	log.SetOutput(cmd.ErrOrStderr())

	cfg = loaded
	return nil
}

// algorithmCode accepts a name ("sha2-256") or a raw numeric code ("0x12",
// "18"). Numeric codes are passed through unchecked so the syscall decides.
func algorithmCode(s string) (uint64, error) {
	if code, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64); err == nil {
		return code, nil
	}
	d, err := hashalg.ByName(s)
	if err != nil {
		return 0, err
	}
	return uint64(d.Code), nil
}

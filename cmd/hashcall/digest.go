package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/caffeineduck/hashcall/guestmem"
	"github.com/caffeineduck/hashcall/hostfunc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest [file]",
	Short: "Hash a file or stdin through the syscall path",
	Long: `Copy the input into a guest memory and hash it with the same
dispatcher guests use, then print the digest as hex.

Input can be provided via:
  - File argument: hashcall digest data.bin
  - Inline flag: hashcall digest -s 'hello'
  - Stdin: echo hello | hashcall digest`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().StringP("algo", "a", "sha2-256", "Algorithm name or multicodec code")
	digestCmd.Flags().StringP("string", "s", "", "Hash this string instead of a file")
	digestCmd.Flags().Uint32("out-cap", 64, "Output buffer capacity in bytes")
	digestCmd.Flags().Bool("in-place", false, "Write the digest over the input buffer")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	algo, _ := cmd.Flags().GetString("algo")
	str, _ := cmd.Flags().GetString("string")
	outCap, _ := cmd.Flags().GetUint32("out-cap")
	inPlace, _ := cmd.Flags().GetBool("in-place")

	var data []byte
	var err error
	switch {
	case cmd.Flags().Changed("string"):
		data = []byte(str)
	case len(args) > 0:
		data, err = os.ReadFile(args[0])
	default:
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return errors.Wrap(err, "read input")
	}

	code, err := algorithmCode(algo)
	if err != nil {
		return err
	}

	digest, err := digestVia(hostfunc.NewHasher(hostfunc.WithLogger(log.StandardLogger())), code, data, outCap, inPlace)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(digest))
	return nil
}

// digestVia lays data out in a fresh guest memory and runs the hash syscall
// over it. With inPlace the output range starts at the input.
func digestVia(h *hostfunc.Hasher, code uint64, data []byte, outCap uint32, inPlace bool) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32-uint64(outCap) {
		return nil, errors.Errorf("input of %d bytes does not fit a 32-bit guest memory", len(data))
	}
	inLen := uint32(len(data))

	outPtr := inLen
	size := inLen + outCap
	if inPlace {
		outPtr = 0
		size = inLen
		if outCap > size {
			size = outCap
		}
	}

	mem := guestmem.NewBuffer(size)
	copy(mem.Bytes(), data)

	n, err := h.Hash(mem, code, 0, inLen, outPtr, outCap)
	if err != nil {
		return nil, errors.Wrapf(err, "hash syscall (errno %d)", hostfunc.Errno(err))
	}
	return append([]byte(nil), mem.Bytes()[outPtr:outPtr+n]...), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"refile/internal/app"
	"refile/internal/config"
	"refile/internal/encryption"
	"refile/internal/refile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a RefileApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "split", "reconstruct").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.RefileApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewRefileApp(cmd.Context(), cfg, app.LoadCredentials(), operation, args, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase returns REFILE_PASSPHRASE when set, otherwise prompts on the terminal.
func readPassphrase(prompt string) (string, error) {
	if p, ok := app.PassphraseFromEnv(); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no passphrase: set %s or run interactively", app.EnvPassphrase)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// unlockKey decrypts the configured key file.
func unlockKey(a *app.RefileApp) (refile.Key, error) {
	if !a.KeyFile().Exists() {
		return refile.Key{}, fmt.Errorf("no key at %s: run 'refile key init' first", a.KeyFile().Path())
	}
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return refile.Key{}, err
	}
	return a.UnlockKey(passphrase)
}

// parseChunkCount reads the optional chunk count argument at position idx.
func parseChunkCount(args []string, idx int) (int, error) {
	if len(args) <= idx {
		return refile.DefaultChunkCount, nil
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, fmt.Errorf("invalid chunk count %q: %w", args[idx], err)
	}
	return n, nil
}

func printSplit(res *refile.SplitResult) {
	total := 0
	for _, s := range res.ChunkSizes {
		total += s
	}
	fmt.Printf("Split %s into %d chunk(s)\n", humanize.Bytes(uint64(total)), res.Manifest.ChunkCount)
	fmt.Printf("Checksum: %s\n", res.Manifest.Checksum)
	fmt.Printf("Manifest: %s\n", res.ManifestPath)
	if len(res.Missing) > 0 {
		fmt.Printf("Missing chunks: %v (manifest cannot be reconstructed)\n", res.Missing)
	}
}

func printReconstruct(res *refile.ReconstructResult) {
	fmt.Printf("Reconstructed %s to %s\n", humanize.Bytes(uint64(res.Size)), res.Path)
	fmt.Printf("Checksum verified: %s\n", res.Checksum)
}

var rootCmd = &cobra.Command{
	Use:          "refile",
	Short:        "Split files into encrypted chunks and put them back together",
	SilenceUsage: true,
}

// run command
var runCmd = &cobra.Command{
	Use:   "run INPUT OUTPUT_DIR [CHUNK_COUNT]",
	Short: "Split a file and reconstruct it again",
	Long: "Split INPUT into encrypted chunks, upload them, write the manifest to OUTPUT_DIR " +
		"and reconstruct the file there. Uses the key file when one exists, otherwise a one-off key.",
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := parseChunkCount(args, 2)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "run", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var key refile.Key
		if a.KeyFile().Exists() {
			key, err = unlockKey(a)
		} else {
			key, err = encryption.GenerateKey()
		}
		if err != nil {
			return err
		}

		res, err := a.Run(cmd.Context(), args[0], args[1], chunks, key)
		if res != nil && res.Split != nil {
			printSplit(res.Split)
		}
		if err != nil {
			return err
		}
		printReconstruct(res.Reconstruct)
		return nil
	},
}

// split command
var splitCmd = &cobra.Command{
	Use:   "split INPUT OUTPUT_DIR [CHUNK_COUNT]",
	Short: "Split, encrypt and upload a file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := parseChunkCount(args, 2)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "split", args)
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := unlockKey(a)
		if err != nil {
			return err
		}

		res, err := a.Split(cmd.Context(), args[0], args[1], chunks, key)
		if err != nil {
			return err
		}
		printSplit(res)
		if len(res.Missing) > 0 {
			return fmt.Errorf("%w: %d chunk(s) missing", refile.ErrIncompleteManifest, len(res.Missing))
		}
		return nil
	},
}

// reconstruct command
var reconstructCmd = &cobra.Command{
	Use:   "reconstruct MANIFEST OUTPUT_DIR",
	Short: "Download, decrypt and verify a split file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "reconstruct", args)
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := unlockKey(a)
		if err != nil {
			return err
		}

		res, err := a.Reconstruct(cmd.Context(), args[0], args[1], key)
		if err != nil {
			var cm *refile.ChecksumMismatchError
			if errors.As(err, &cm) {
				fmt.Fprintf(os.Stderr, "expected %s\nactual   %s\n", cm.Expected, cm.Actual)
			}
			return err
		}
		printReconstruct(res)
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the encryption key",
}

var keyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected key",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "key-init", args)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if passphrase == "" {
			return fmt.Errorf("passphrase must not be empty")
		}
		if _, ok := app.PassphraseFromEnv(); !ok {
			confirm, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if confirm != passphrase {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := a.InitKey(passphrase); err != nil {
			return err
		}
		fmt.Printf("Key written to %s\n", a.KeyFile().Path())
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Key.Path = defaults["key_path"]
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Key:      %s\n", cfg.Key.Path)
		fmt.Printf("Store:    %s (%s) at %s\n", cfg.Store.Name, cfg.Store.Type, defaults["store_root"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Key:       %s (%s)\n", cfg.Key.Path, cfg.Key.Cipher)
		fmt.Printf("Store:     %s (%s)\n", cfg.Store.Name, cfg.Store.Type)
		fmt.Printf("Workers:   %d up / %d down\n", cfg.Transfer.UploadWorkers, cfg.Transfer.DownloadWorkers)
		fmt.Printf("Retry:     %d attempts, %s initial, %s max\n", cfg.Retry.MaxAttempts, cfg.Retry.InitialInterval, cfg.Retry.MaxInterval)
		fmt.Printf("Strict:    %t\n", cfg.Transfer.RequireComplete)
		return nil
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the chunk store",
}

var storeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "store-check", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckStore(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Store OK")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")

	// key subcommands
	keyCmd.AddCommand(keyInitCmd)

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// store subcommands
	storeCmd.AddCommand(storeCheckCmd)

	// root commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(reconstructCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(storeCmd)
}

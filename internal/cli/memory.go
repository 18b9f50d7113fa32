package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/cache"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// memoryCommand creates the size memory management command.
func (c *CLI) memoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage persisted size memory",
	}

	cmd.AddCommand(c.memoryPathCommand())
	cmd.AddCommand(c.memoryClearCommand())
	cmd.AddCommand(c.memoryShowCommand())

	return cmd
}

// memoryPathCommand creates the "memory path" subcommand.
func (c *CLI) memoryPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file backend directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// memoryClearCommand creates the "memory clear" subcommand.
func (c *CLI) memoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget all size memory of the file backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				statusOf(cmd).info("Size memory is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			defer fc.Close()
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			st := statusOf(cmd)
			st.ok("Cleared %d stored trees", count)
			st.detail("Directory: %s", dir)
			return nil
		},
	}
}

// memoryShowCommand creates the "memory show" subcommand.
func (c *CLI) memoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <output>",
		Short:             "Print the stored tree of an output",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeOutput,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			mem, err := c.openMemory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer mem.Close()

			key := memoryKeyer(cfg).TreeKey(args[0])
			data, ok, err := mem.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				statusOf(cmd).info("No size memory for %s", args[0])
				return nil
			}
			t, err := tree.Read(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("decode stored tree: %w", err)
			}
			return tree.Write(cmd.OutOrStdout(), t)
		},
	}
}

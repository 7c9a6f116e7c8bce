// Command archivectl inspects binary archive directories without requiring
// a caller to write Go code: list the fields a manifest records, verify
// every recorded checksum against its data file, or print a one-line
// summary of the archive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldforge/binaryarchive"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "archivectl",
		Short:         "Inspect binary archive directories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInspectCmd(), newVerifyCmd(), newFieldsCmd())
	return root
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <directory>",
		Short: "Print a one-line summary of an archive directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := binaryarchive.Open(args[0], binaryarchive.Read)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Println(a.ToText())
			return nil
		},
	}
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <directory>",
		Short: "List every field name and its snapshot count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := binaryarchive.Open(args[0], binaryarchive.Read)
			if err != nil {
				return err
			}
			defer a.Close()
			for _, name := range a.FieldNames() {
				fmt.Printf("%s\t%d\n", name, a.SnapshotCount(name))
			}
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <directory>",
		Short: "Re-check every field's recorded checksums against its data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := binaryarchive.Open(args[0], binaryarchive.Read)
			if err != nil {
				return err
			}
			defer a.Close()

			failures := 0
			for _, name := range a.FieldNames() {
				for id := 0; id < a.SnapshotCount(name); id++ {
					if err := a.VerifyChecksum(name, id); err != nil {
						failures++
						fmt.Printf("FAIL\t%s[%d]\t%v\n", name, id, err)
						continue
					}
					fmt.Printf("OK\t%s[%d]\n", name, id)
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d snapshot(s) failed checksum verification", failures)
			}
			return nil
		},
	}
}

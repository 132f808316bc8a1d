package cli

import (
	"errors"
	"fmt"
	"strconv"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/bodyfile"
	"f0oster/ntdsinspect/output"
	"f0oster/ntdsinspect/ui"

	"github.com/spf13/cobra"
)

func (a *app) treeCommand() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "tree <ntds-file>",
		Short: "Display the directory information tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			if !cmd.Flags().Changed("max-depth") {
				maxDepth = a.cfg.MaxDepth
			}
			root, err := in.TreeView(maxDepth)
			if err != nil {
				return err
			}
			return output.WriteTree(cmd.OutOrStdout(), root)
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 4, "Maximum recursion depth")
	return cmd
}

func (a *app) entryCommand() *cobra.Command {
	var (
		useSID bool
		dn     string
	)
	cmd := &cobra.Command{
		Use:   "entry <ntds-file> [<id>]",
		Short: "Display one single entry from the directory information tree",
		Long: `Display one entry by its record id. With --sid the id is read as a RID,
the last part of a SID; 500 returns the Administrator account. With --dn
the entry is looked up by distinguished name and no id is given.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if dn != "" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dn != "" && useSID {
				return errors.New("--sid and --dn are mutually exclusive")
			}
			lookup, err := entryLookup(args, useSID, dn)
			if err != nil {
				return err
			}

			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			entry, err := lookup(in)
			if err != nil {
				return err
			}
			return output.WriteEntry(cmd.OutOrStdout(), a.display, entry)
		},
	}
	cmd.Flags().BoolVar(&useSID, "sid", false, "Interpret the id as a RID")
	cmd.Flags().StringVar(&dn, "dn", "", "Look the entry up by distinguished name")
	return cmd
}

// entryLookup parses the arguments before the database is opened so that a
// malformed id fails fast.
func entryLookup(args []string, useSID bool, dn string) (func(*activedirectory.Instance) (*activedirectory.Entry, error), error) {
	if dn != "" {
		return func(in *activedirectory.Instance) (*activedirectory.Entry, error) {
			return in.EntryByDN(dn)
		}, nil
	}
	if useSID {
		rid, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid RID %q: %w", args[1], err)
		}
		return func(in *activedirectory.Instance) (*activedirectory.Entry, error) {
			return in.EntryByRID(uint32(rid))
		}, nil
	}
	id, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", args[1], err)
	}
	return func(in *activedirectory.Instance) (*activedirectory.Entry, error) {
		return in.EntryByID(int32(id))
	}, nil
}

func (a *app) searchCommand() *cobra.Command {
	var ignoreCase bool
	cmd := &cobra.Command{
		Use:   "search <ntds-file> <regex>",
		Short: "Search for entries whose values match a regular expression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			re, err := activedirectory.CompileSearch(args[1], ignoreCase)
			if err != nil {
				return err
			}
			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := in.Search(re)
			if err != nil {
				return err
			}
			if result.Skipped > 0 {
				a.logger.Sugar().Warnw("some records could not be searched", "skipped", result.Skipped)
			}
			return output.WriteSearch(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "Case-insensitive search")
	return cmd
}

func (a *app) timelineCommand() *cobra.Command {
	var opts activedirectory.TimelineOptions
	cmd := &cobra.Command{
		Use:   "timeline <ntds-file>",
		Short: "Create a timeline in body file format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			opts.Scope = in.TimelineScope(opts)
			progress := ui.NewProgress("building timeline", len(opts.Scope))
			opts.OnRecord = progress.Inc
			w := bodyfile.NewWriter(cmd.OutOrStdout())
			summary, err := in.Timeline(opts, w.Write)
			progress.Finish()
			if err != nil {
				return err
			}
			a.logger.Sugar().Infow("timeline written", "records", summary.Records, "lines", summary.Lines)
			if summary.Skipped > 0 {
				a.logger.Sugar().Warnw("some records could not be decoded", "skipped", summary.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.AllObjects, "all-objects", false, "Show objects of any type (this might be a lot)")
	cmd.Flags().BoolVar(&opts.IncludeDeleted, "include-deleted", false, "Include deleted objects")
	return cmd
}

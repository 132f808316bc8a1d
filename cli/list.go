package cli

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/output"
	"f0oster/ntdsinspect/ui"

	"github.com/spf13/cobra"
)

// lister runs one of the typed listings of an instance.
type lister func(in *activedirectory.Instance, showAll bool, w *output.RecordWriter, progress *ui.Progress) (int, error)

func listing[T output.Record](list func(*activedirectory.Instance, bool, func(T) error) (int, error)) lister {
	return func(in *activedirectory.Instance, showAll bool, w *output.RecordWriter, progress *ui.Progress) (int, error) {
		return list(in, showAll, func(obj T) error {
			progress.Inc()
			return w.Write(obj)
		})
	}
}

func (a *app) listCommand(use, short string, t activedirectory.ObjectType, run lister) *cobra.Command {
	var (
		format  output.Format
		showAll bool
	)
	cmd := &cobra.Command{
		Use:   use + " <ntds-file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			format = a.outputFormat(cmd, format)
			// CSV has fixed columns and cannot carry the extra attributes.
			if showAll && format == output.FormatCSV {
				a.logger.Sugar().Infow("--show-all is ignored for CSV output")
				showAll = false
			}

			progress := ui.NewProgress(fmt.Sprintf("loading %s records", t), in.Count(t))
			w := output.NewRecordWriter(cmd.OutOrStdout(), format)
			skipped, err := run(in, showAll, w, progress)
			progress.Finish()
			if err != nil {
				return err
			}
			if skipped > 0 {
				a.logger.Sugar().Warnw("some records could not be decoded", "type", t, "skipped", skipped)
			}
			return w.Flush()
		},
	}
	formatFlag(cmd.Flags(), &format)
	cmd.Flags().BoolVarP(&showAll, "show-all", "A", false, "Show all non-empty values (ignored for CSV output)")
	return cmd
}

func (a *app) userCommand() *cobra.Command {
	return a.listCommand("user", "Display user accounts", activedirectory.ObjectPerson,
		listing((*activedirectory.Instance).ListPersons))
}

func (a *app) groupCommand() *cobra.Command {
	return a.listCommand("group", "Display groups", activedirectory.ObjectGroup,
		listing((*activedirectory.Instance).ListGroups))
}

func (a *app) computerCommand() *cobra.Command {
	return a.listCommand("computer", "Display computer accounts", activedirectory.ObjectComputer,
		listing((*activedirectory.Instance).ListComputers))
}

func (a *app) typesCommand() *cobra.Command {
	var format output.Format
	cmd := &cobra.Command{
		Use:   "types <ntds-file>",
		Short: "List all defined types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()
			return output.WriteAll(cmd.OutOrStdout(), a.outputFormat(cmd, format), in.Types())
		},
	}
	formatFlag(cmd.Flags(), &format)
	return cmd
}

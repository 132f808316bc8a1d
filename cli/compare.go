package cli

import (
	"fmt"
	"strings"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/output"
	"f0oster/ntdsinspect/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareTypes = map[string]activedirectory.ObjectType{
	"user":     activedirectory.ObjectPerson,
	"group":    activedirectory.ObjectGroup,
	"computer": activedirectory.ObjectComputer,
}

// scopeTypes turns the --type values into object types; none selects
// users, groups and computers.
func scopeTypes(names []string) ([]activedirectory.ObjectType, error) {
	if len(names) == 0 {
		return []activedirectory.ObjectType{activedirectory.ObjectPerson, activedirectory.ObjectGroup, activedirectory.ObjectComputer}, nil
	}
	var out []activedirectory.ObjectType
	for _, name := range names {
		t, ok := compareTypes[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown object type %q (want user, group or computer)", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// takeSnapshots decodes every record of the given types. Records without
// an objectGUID cannot be matched across databases and are skipped.
func takeSnapshots(in *activedirectory.Instance, types []activedirectory.ObjectType, logger *zap.Logger) []*snapshot.Snapshot {
	var typeIDs []int32
	for _, t := range types {
		if id, ok := in.TypeID(t); ok {
			typeIDs = append(typeIDs, id)
		}
	}
	entries := in.Index.Entries()
	if types != nil {
		entries = in.Index.EntriesOfType(typeIDs...)
	}
	return snapshotEntries(in, in.ParseEntries(entries), logger)
}

func snapshotEntries(in *activedirectory.Instance, results []*activedirectory.ParseResult, logger *zap.Logger) []*snapshot.Snapshot {
	sugar := logger.Sugar()
	svc := snapshot.NewService()
	snaps := make([]*snapshot.Snapshot, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			sugar.Warnw("skipping record", "recordId", r.RecordID, "error", r.Error)
			continue
		}
		snap, err := svc.CreateSnapshot(r.Object)
		if err != nil {
			sugar.Debugw("no snapshot for record", "recordId", r.RecordID, "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

func (a *app) compareCommand() *cobra.Command {
	var (
		format output.Format
		types  []string
	)
	cmd := &cobra.Command{
		Use:   "compare <ntds-file> <other-ntds-file>",
		Short: "Report objects that differ between two databases",
		Long: `Decode the users, groups and computers of two databases, match them by
objectGUID and report added, removed and modified objects with their
attribute and security descriptor changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeTypes(types)
			if err != nil {
				return err
			}

			older, closeOlder, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeOlder()
			newer, closeNewer, err := a.open(args[1])
			if err != nil {
				return err
			}
			defer closeNewer()

			changes := snapshot.NewService().CompareSets(
				takeSnapshots(older, scope, a.logger),
				takeSnapshots(newer, scope, a.logger),
				newer,
			)
			a.logger.Sugar().Infow("compared databases", "changes", len(changes))
			return output.WriteChanges(cmd.OutOrStdout(), a.outputFormat(cmd, format), changes)
		},
	}
	formatFlag(cmd.Flags(), &format)
	cmd.Flags().StringSliceVar(&types, "type", nil, "Restrict the comparison to user, group or computer (repeatable)")
	return cmd
}

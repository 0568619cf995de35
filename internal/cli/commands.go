package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"webform-store/internal/store"
	"webform-store/internal/webform"
)

// InitDBCommand creates the init-db command
func InitDBCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate the submission tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				state, err := s.EnsureSchema(ctx)
				if err != nil {
					return err
				}
				switch state {
				case store.SchemaAbsent:
					printf(cmd, "Tables created.\n")
				case store.SchemaOutdated:
					printf(cmd, "Tables migrated.\n")
				default:
					printf(cmd, "Tables are up to date.\n")
				}
				return nil
			})
		},
	}
}

// SchemaCommand creates the schema command
func SchemaCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Report whether the submission tables are absent, outdated or current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				state, err := s.DetectSchema(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd, map[string]string{"schema": state.String()})
				}
				printf(cmd, "%s\n", state)
				return nil
			})
		},
	}
}

// CountCommand creates the count command
func CountCommand(opts *globalOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count submissions per form, or those matching the given filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ff.isEmpty() {
				return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
					counts, err := s.CountByForm(ctx)
					if err != nil {
						return err
					}
					if opts.json {
						return writeJSON(cmd, counts)
					}
					printCounts(cmd, counts)
					return nil
				})
			}

			f, err := ff.filter()
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				n, err := s.CountByFilter(ctx, f)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd, map[string]int{"count": n})
				}
				printf(cmd, "%d\n", n)
				return nil
			})
		},
	}
	ff.register(cmd, false)
	return cmd
}

// ListCommand creates the list command
func ListCommand(opts *globalOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions matching a filter",
		Long: `List submissions matching a filter, newest first.

Examples:
  webform list --form contact
  webform list --form contact --field topic=billing --state 0 --state 1
  webform list --headers --from 20 --to 40 --asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				subs, err := s.ReadByFilter(ctx, f)
				if err != nil {
					return err
				}
				if opts.json {
					if subs == nil {
						subs = []webform.Submission{}
					}
					return writeJSON(cmd, subs)
				}
				printSubmissions(cmd, subs, f.IsHeadersOnly())
				return nil
			})
		},
	}
	ff.register(cmd, true)
	return cmd
}

// GetCommand creates the get command
func GetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entry-id>",
		Short: "Show one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				sub, err := s.ReadByID(ctx, entryID)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd, sub)
				}
				printSubmission(cmd, sub)
				return nil
			})
		},
	}
}

// DeleteCommand creates the delete command
func DeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete a submission and its field values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.Delete(ctx, entryID); err != nil {
					return err
				}
				printf(cmd, "Deleted submission %d.\n", entryID)
				return nil
			})
		},
	}
}

// FieldNamesCommand creates the field-names command
func FieldNamesCommand(opts *globalOptions) *cobra.Command {
	var formID, start, end string

	cmd := &cobra.Command{
		Use:   "field-names",
		Short: "List the field names used by a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			to, err := parseTime(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				names, err := s.ReadFieldNames(ctx, formID, from, to)
				if err != nil {
					return err
				}
				if opts.json {
					if names == nil {
						names = []string{}
					}
					return writeJSON(cmd, names)
				}
				for _, name := range names {
					printf(cmd, "%s\n", name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formID, "form", "", "Form id (required)")
	cmd.Flags().StringVar(&start, "start", "", "Created at or after")
	cmd.Flags().StringVar(&end, "end", "", "Created at or before")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

// SetStateCommand creates the set-state command
func SetStateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-state <entry-id> <state>",
		Short: "Set the workflow state of a submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			state, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid state %q: %w", args[1], err)
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.UpdateState(ctx, entryID, state); err != nil {
					return err
				}
				printf(cmd, "Submission %d is now in state %d.\n", entryID, state)
				return nil
			})
		},
	}
}

// SetFieldCommand creates the set-field command
func SetFieldCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-field <entry-id> <name> [value]",
		Short: "Replace the value of a field; without a value the field is removed",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			name := args[1]
			var value string
			if len(args) == 3 {
				value = args[2]
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.UpdateFieldValue(ctx, entryID, name, value); err != nil {
					return err
				}
				printf(cmd, "Updated field %s of submission %d.\n", name, entryID)
				return nil
			})
		},
	}
}

// SubmitCommand creates the submit command
func SubmitCommand(opts *globalOptions) *cobra.Command {
	var (
		formID   string
		resource string
		fields   []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a new submission",
		Long: `Store a new submission in the initial state.

--resource takes a resource id or a resource path listed under resources in
webform.yaml. Repeat --field for every value; a name may repeat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := webform.NewSubmission{FormID: formID, Resource: resource}
			for _, raw := range fields {
				fv, err := parseField(raw)
				if err != nil {
					return err
				}
				in.Fields = append(in.Fields, fv)
			}
			return opts.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				res, err := s.WriteSubmission(ctx, in)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd, submitOutput(res))
				}
				printf(cmd, "Stored submission %d (%d field value(s)).\n", res.EntryID, res.Written)
				for _, f := range res.Failed {
					printf(cmd, "  not stored: %s: %v\n", f.Field, f.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&formID, "form", "", "Form id (required)")
	cmd.Flags().StringVar(&resource, "resource", "", "Owning resource id or path")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field value name=value (repeatable)")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

type submitResult struct {
	EntryID     int64    `json:"entry_id"`
	DateCreated int64    `json:"date_created"`
	ResourceID  string   `json:"resource_id"`
	Written     int      `json:"written"`
	Failed      []string `json:"failed,omitempty"`
}

func submitOutput(res *store.WriteResult) submitResult {
	out := submitResult{
		EntryID:     res.EntryID,
		DateCreated: res.DateCreated,
		ResourceID:  res.ResourceID.String(),
		Written:     res.Written,
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, f.Field)
	}
	return out
}

// ConfigCommand creates the config command
func ConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if file := cfg.File(); file != "" {
				printf(cmd, "# %s\n", file)
			}
			for _, key := range cfg.Keys() {
				value, _ := cfg.Parameter(key)
				if key == "dsn" || strings.HasSuffix(key, ".dsn") {
					value = maskConnectionString(value)
				}
				printf(cmd, "%s = %s\n", key, value)
			}
			return nil
		},
	}
}

func parseEntryID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", raw)
	}
	return id, nil
}

// maskConnectionString masks sensitive parts of database connection string for display
func maskConnectionString(connStr string) string {
	if len(connStr) > 20 {
		return connStr[:10] + "..." + connStr[len(connStr)-10:]
	}
	return "***"
}

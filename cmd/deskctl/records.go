package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"deskcore/internal/core"
	"deskcore/internal/form"
	"deskcore/internal/query"
	"deskcore/pkg/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// queryFlags binds the search, filter and sort flags shared by list and export.
type queryFlags struct {
	search string
	equals []string
	ranges []string
	sort   string
	desc   bool
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive search over the collection's search fields")
	cmd.Flags().StringArrayVar(&f.equals, "eq", nil, "exact filter field=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.ranges, "range", nil, "numeric filter field=min:max, either bound may be empty (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

func (f *queryFlags) build(d domain.Descriptor) (query.Query, error) {
	q := query.Query{Search: f.search, Sort: query.SortState{Field: f.sort, Desc: f.desc}}
	for _, raw := range f.equals {
		field, value, ok := strings.Cut(raw, "=")
		if !ok {
			return query.Query{}, fmt.Errorf("%w: --eq %q must be field=value", domain.ErrValidation, raw)
		}
		q.Equals = append(q.Equals, query.Equals{Field: field, Value: value})
	}
	for _, raw := range f.ranges {
		field, bounds, ok := strings.Cut(raw, "=")
		if !ok {
			return query.Query{}, fmt.Errorf("%w: --range %q must be field=min:max", domain.ErrValidation, raw)
		}
		lower, upper, _ := strings.Cut(bounds, ":")
		r, err := query.ParseRange(d, field, lower, upper)
		if err != nil {
			return query.Query{}, err
		}
		q.Ranges = append(q.Ranges, r)
	}
	if err := q.Validate(d); err != nil {
		return query.Query{}, err
	}
	return q, nil
}

func (c *cli) listCmd() *cobra.Command {
	var (
		qf     queryFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List a collection with optional search, filters and sort",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			q, err := qf.build(d)
			if err != nil {
				return err
			}
			records, err := query.Run(svc.Store().List(d.Entity()), d, q)
			if err != nil {
				return err
			}
			return writeRecords(cmd.OutOrStdout(), d, records, asJSON)
		},
	}
	qf.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the records as JSON")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			rec, ok := svc.Store().Get(d.Entity(), args[1])
			if !ok {
				return fmt.Errorf("%s %s: %w", d.Entity(), args[1], domain.ErrNotFound)
			}
			if asJSON {
				return writeRecords(cmd.OutOrStdout(), d, []domain.Record{rec}, true)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRecord(d, rec))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "set <collection> field=value...",
		Short: "Create a record, or edit the record named by --id",
		Long: `set creates a record from field=value pairs. With --id it edits the stored
record instead and only the named fields change.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			draft := form.NewRecord(d)
			if id != "" {
				if draft, err = form.EditRecord(svc, d, id); err != nil {
					return err
				}
			}
			modal := form.NewModal(nil)
			tok := modal.Open(d.Key(), id)
			defer modal.Close()

			// Every field is tried so all parse errors are reported together.
			var invalid []domain.FieldError
			for _, kv := range fields {
				err := draft.Set(kv[0], kv[1])
				var fe *domain.ValidationError
				switch {
				case err == nil:
				case errors.As(err, &fe):
					invalid = append(invalid, fe.Errors...)
				default:
					return err
				}
			}
			if len(invalid) > 0 {
				return &domain.ValidationError{Entity: d.Entity(), Errors: invalid}
			}
			var out core.Outcome
			err = modal.Tracker().Commit(tok, func() error {
				var err error
				out, err = draft.Dispatch(cmd.Context(), svc)
				return err
			})
			if err != nil {
				return err
			}
			for _, v := range out.Result.Violations {
				c.logger.Warn("rule violation", zap.String("rule", v.Rule), zap.String("message", v.Message))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRecord(d, out.Record))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "edit the record with this id instead of creating one")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record and apply its cascades",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			changes, err := core.Delete(cmd.Context(), svc, d.Entity(), args[1])
			if err != nil {
				return err
			}
			writeChanges(cmd.OutOrStdout(), changes)
			return nil
		},
	}
}

func parseAssignments(args []string) ([][2]string, error) {
	out := make([][2]string, 0, len(args))
	for _, raw := range args {
		field, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: %q must be field=value", domain.ErrValidation, raw)
		}
		out = append(out, [2]string{strings.TrimSpace(field), value})
	}
	return out, nil
}

func writeRecords(w io.Writer, d domain.Descriptor, records []domain.Record, asJSON bool) error {
	if asJSON {
		payload, err := d.Encode(records)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}
	headers := append([]string{"id"}, d.FieldNames()...)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, append([]string{rec.Meta().ID}, d.Row(rec)...))
	}
	_, err := fmt.Fprint(w, renderTable(d.Key(), headers, rows))
	return err
}

func writeChanges(w io.Writer, changes []domain.Change) {
	for _, ch := range changes {
		var id string
		switch {
		case ch.After != nil:
			id = ch.After.Meta().ID
		case ch.Before != nil:
			id = ch.Before.Meta().ID
		}
		fmt.Fprintf(w, "%s %s %s\n", ch.Action, ch.Entity, id)
	}
}

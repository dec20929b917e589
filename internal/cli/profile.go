package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vietddude/soqlguard/internal/control"
	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/output"
	"github.com/vietddude/soqlguard/internal/soql"
)

var profileCmd = &cobra.Command{
	Use:     "profile OBJECT FIELD...",
	Short:   "Count non-null values of each field of an object",
	Example: `  soqlguard profile Account Name Industry Legacy__c`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runProfile,
}

var (
	profileExclude []string

	valuesGroups int
	valuesAll    bool
)

var valuesCmd = &cobra.Command{
	Use:   "values OBJECT FIELD",
	Short: "Show the most common values of a field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := soql.MostCommonValues(args[0], args[1], valuesGroups)
		if valuesAll {
			q = soql.CountOfFieldValue(args[0], args[1])
		}
		return runTemplate(cmd, q)
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest OBJECT FIELD",
	Short: "Show the most recently created record with a value in field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTemplate(cmd, soql.LastCreatedWithField(args[0], args[1]))
	},
}

func init() {
	profileCmd.Flags().StringSliceVarP(&profileExclude, "exclude", "x", nil, "fields to skip, as Field or Object.Field (adds to profile.exclude)")
	valuesCmd.Flags().IntVarP(&valuesGroups, "groups", "n", soql.DefaultGroups, "number of values to show")
	valuesCmd.Flags().BoolVar(&valuesAll, "all", false, "show every value, least common first")
	rootCmd.AddCommand(profileCmd, valuesCmd, latestCmd)
}

// FieldCoverage is the non-null count of one profiled field.
type FieldCoverage struct {
	Field string
	Count any
}

// coverage maps the positional exprN columns of a COUNT profile row back
// to the fields that survived repair.
func coverage(res *domain.ExecutionResult) ([]FieldCoverage, error) {
	if len(res.Records) == 0 {
		return nil, errors.New("profile returned no rows")
	}
	row := res.Records[0]
	out := make([]FieldCoverage, 0, len(res.FinalFields))
	for i, field := range res.FinalFields {
		v, _ := row.Get(fmt.Sprintf("expr%d", i))
		out = append(out, FieldCoverage{Field: field, Count: v})
	}
	return out, nil
}

// exclusions merges the configured list, the exclude file, and the flag.
func exclusions() ([]string, error) {
	out := append([]string(nil), cfg.Profile.Exclude...)
	if cfg.Profile.ExcludeFile != "" {
		f, err := os.Open(cfg.Profile.ExcludeFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		lines, err := readLines(f)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return append(out, profileExclude...), nil
}

// filterExcluded drops fields named by an exclusion entry. An entry is a
// bare field name or Object.Field; names compare case-insensitively.
func filterExcluded(object string, fields, exclude []string) (kept, skipped []string) {
	for _, f := range fields {
		if isExcluded(object, f, exclude) {
			skipped = append(skipped, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped
}

func isExcluded(object, field string, exclude []string) bool {
	for _, e := range exclude {
		obj, name, qualified := strings.Cut(e, ".")
		if !qualified {
			name = obj
		} else if !strings.EqualFold(obj, object) {
			continue
		}
		if strings.EqualFold(name, field) {
			return true
		}
	}
	return false
}

func runProfile(cmd *cobra.Command, args []string) error {
	exclude, err := exclusions()
	if err != nil {
		return err
	}
	fields, skipped := filterExcluded(args[0], args[1:], exclude)
	if len(skipped) > 0 {
		pterm.Info.Printfln("Excluded: %s", strings.Join(skipped, ", "))
	}
	if len(fields) == 0 {
		return errors.New("every field is excluded")
	}

	ctx := cmd.Context()
	app, err := newApp(ctx, control.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	res, err := app.Executor.ExecuteAdaptive(ctx, soql.CountOfFieldsValues(args[0], fields))
	if err != nil {
		return err
	}
	if !res.Succeeded {
		return presentResult(res)
	}

	cov, err := coverage(res)
	if err != nil {
		return err
	}
	rows := make([]map[string]any, len(cov))
	for i, c := range cov {
		rows[i] = map[string]any{"field": c.Field, "non_null": c.Count}
	}
	f, err := output.New(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := f.Format([]string{"field", "non_null"}, rows); err != nil {
		return err
	}

	if len(res.RemovedFields) > 0 {
		pterm.Warning.Printfln("Not queryable: %s", strings.Join(res.RemovedFields, ", "))
	}
	return nil
}

func runTemplate(cmd *cobra.Command, q domain.Query) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, control.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	res, err := app.Executor.ExecuteAdaptive(ctx, q)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/vietddude/soqlguard/internal/adaptive/executor"
	"github.com/vietddude/soqlguard/internal/control"
	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/output"
	"github.com/vietddude/soqlguard/internal/soql"
)

var (
	queryFile        string
	queryTooling     bool
	queryConcurrency int
)

var queryCmd = &cobra.Command{
	Use:   "query [SOQL]",
	Short: "Run a query, removing fields the service rejects",
	Example: `  soqlguard query "SELECT Id, Name, Legacy__c FROM Account LIMIT 5"
  soqlguard query --file queries.soql --concurrency 8`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "read one query per line from file")
	queryCmd.Flags().BoolVar(&queryTooling, "tooling", false, "send to the tooling endpoint")
	queryCmd.Flags().IntVar(&queryConcurrency, "concurrency", 0, "parallel queries for --file (default batch.concurrency)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryFile == "" && len(args) == 0 {
		return errors.New("a query or --file is required")
	}

	ctx := cmd.Context()
	app, err := newApp(ctx, control.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	endpoint := domain.Endpoint(cfg.Salesforce.Endpoint)
	if queryTooling {
		endpoint = domain.EndpointTooling
	}

	if queryFile != "" {
		return runQueryFile(cmd, app.Executor, endpoint)
	}

	res, err := app.Executor.ExecuteText(ctx, endpoint, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func runQueryFile(cmd *cobra.Command, exec *executor.Executor, endpoint domain.Endpoint) error {
	f, err := os.Open(queryFile)
	if err != nil {
		return err
	}
	defer f.Close()

	texts, err := readLines(f)
	if err != nil {
		return err
	}

	queries := make([]domain.Query, 0, len(texts))
	for i, text := range texts {
		q, err := soql.Parse(text)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", queryFile, i+1, err)
		}
		queries = append(queries, q)
	}

	concurrency := queryConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Batch.Concurrency
	}
	results := exec.RunBatchOn(cmd.Context(), endpoint, queries, concurrency)

	var last error
	w := cmd.OutOrStdout()
	for _, r := range results {
		pterm.DefaultSection.Println(r.Query.Text())
		if r.Err != nil {
			presentError(r.Err)
			last = r.Err
			continue
		}
		if err := printResult(w, r.Result); err != nil {
			last = err
		}
	}
	return last
}

// readLines returns the trimmed non-empty lines of r that are not #
// comments.
func readLines(r io.Reader) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		texts = append(texts, line)
	}
	return texts, sc.Err()
}

func printResult(w io.Writer, res *domain.ExecutionResult) error {
	if len(res.RemovedFields) > 0 {
		pterm.Warning.Printfln("Removed %d field(s): %s", len(res.RemovedFields), strings.Join(res.RemovedFields, ", "))
	}
	if !res.Succeeded {
		return presentResult(res)
	}

	f, err := output.New(outputFormat, w)
	if err != nil {
		return err
	}
	rows := output.Rows(res.Records)
	return f.Format(output.Columns(res.FinalFields, rows), rows)
}

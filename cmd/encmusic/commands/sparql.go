package commands

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/encoding-music/internal/output"
	"github.com/dyluth/encoding-music/internal/printer"
	"github.com/dyluth/encoding-music/internal/sparql"
	"github.com/dyluth/encoding-music/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	sqTerm    string
	sqLimit   int
	sqDate    string
	sqFrom    string
	sqTo      string
	sqOpenURL bool
	sqJSON    bool
)

// openBrowser opens url with the platform's default handler.
var openBrowser = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// now is replaced in tests.
var now = time.Now

var sparqlCmd = &cobra.Command{
	Use:   "sparql",
	Short: "Generate Carnegie Hall SPARQL queries",
	Long: `Build queries for the Carnegie Hall data lab from a menu of templates
and print them with an encoded link that runs them on the endpoint.`,
}

var sparqlListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the query templates",
	Args:  cobra.NoArgs,
	RunE:  runSPARQLList,
}

var sparqlQueryCmd = &cobra.Command{
	Use:   "query <option-number|name>",
	Short: "Generate a query",
	Long: `Generate the query for a menu option, by number or exact name.

Inputs depend on the template (see 'encmusic sparql list'):
  --term    number of results, a name, or text to find in titles
  --limit   optional LIMIT for templates that accept one
  --date    the day for "performances on a specific day"
  --from/--to  the range for "performances within a specific date range"

Dates accept YYYY-MM-DD, RFC3339, or a duration ago such as 720h.`,
	Example: `  encmusic sparql query 1 --term 10
  encmusic sparql query 4 --term symphony --limit 25
  encmusic sparql query 7 --from 1961-05-01 --to 1961-05-09 --open-url`,
	Args: cobra.ExactArgs(1),
	RunE: runSPARQLQuery,
}

func init() {
	sparqlQueryCmd.Flags().StringVar(&sqTerm, "term", "", "Search text or number of results")
	sparqlQueryCmd.Flags().IntVar(&sqLimit, "limit", 0, "Result limit (omitted when not set)")
	sparqlQueryCmd.Flags().StringVar(&sqDate, "date", "", "Performance day")
	sparqlQueryCmd.Flags().StringVar(&sqFrom, "from", "", "Start of the date range")
	sparqlQueryCmd.Flags().StringVar(&sqTo, "to", "", "End of the date range")
	sparqlQueryCmd.Flags().BoolVar(&sqOpenURL, "open-url", false, "Open the encoded query in a browser")
	sparqlQueryCmd.Flags().BoolVar(&sqJSON, "json", false, "Print option, query and url as JSON")

	sparqlCmd.AddCommand(sparqlListCmd, sparqlQueryCmd)
	rootCmd.AddCommand(sparqlCmd)
}

func runSPARQLList(cmd *cobra.Command, args []string) error {
	rows := [][]string{}
	for i, t := range sparql.Templates() {
		rows = append(rows, []string{strconv.Itoa(i + 1), t.Name, templateInputs(t)})
	}
	return printer.Table(cmd.OutOrStdout(), []string{"#", "Query", "Inputs"}, rows)
}

func templateInputs(t sparql.Template) string {
	var in []string
	switch t.Kind {
	case sparql.KindDay:
		in = append(in, "--date", "[--term]")
	case sparql.KindRange:
		in = append(in, "--from", "--to")
	default:
		in = append(in, "--term ("+strings.ToLower(t.Label())+")")
	}
	if t.HasLimit() {
		in = append(in, "[--limit]")
	}
	return strings.Join(in, " ")
}

func runSPARQLQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := sparql.Request{
		Option:       args[0],
		Term:         sqTerm,
		LimitEnabled: cmd.Flags().Changed("limit"),
		Limit:        strconv.Itoa(sqLimit),
	}
	if sqDate != "" {
		if req.Date, err = timespec.ParseDate(sqDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}
	if req.From, req.To, err = timespec.ParseRange(sqFrom, sqTo); err != nil {
		return err
	}

	t, err := sparql.Lookup(req.Option)
	if err != nil {
		return userError("Unknown query option", err.Error(),
			"Run 'encmusic sparql list' to see the available queries")
	}
	query, err := sparql.Generate(req, now())
	if err != nil {
		return err
	}
	link := sparql.EncodedURL(cfg.SPARQL.Endpoint, query)

	out := cmd.OutOrStdout()
	if sqJSON {
		if err := output.FormatSingleJSON(out, map[string]string{
			"option": t.Name,
			"query":  query,
			"url":    link,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s\n\nEncoded Query: %s\n", query, link)
	}

	if sqOpenURL {
		if err := openBrowser(link); err != nil {
			printer.Warning("Could not open a browser: %v\n", err)
		}
	}
	return nil
}

package cli

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/gert/internal/output"
)

var extractURLCmd = &cobra.Command{
	Use:   "extract-url <pattern> [change]",
	Short: "Extract URLs from a change's review messages",
	Long: `Scan a change's review messages (and, with --include-comments, its
inline comments) for HTTP(S) URLs matching a pattern. The pattern is a
case-insensitive substring by default, or a regular expression with
--regex. URLs are printed oldest first.

Examples:
  gert extract-url jenkins 12345
  gert extract-url 'build/[0-9]+' 12345 --regex`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExtractURL,
}

func init() {
	extractURLCmd.Flags().Bool("include-comments", false, "also scan inline comments")
	extractURLCmd.Flags().Bool("regex", false, "treat the pattern as a regular expression")
}

var urlScanRE = regexp.MustCompile(`https?://[^\s<>"']+`)

// Guards against catastrophic backtracking in user-supplied patterns:
// nested quantified groups and stacked quantifiers after character classes.
var (
	nestedQuantRE  = regexp.MustCompile(`\([^)]*[+*][^)]*\)[+*?]?`)
	stackedQuantRE = regexp.MustCompile(`\[[^\]]*\][+*]{2,}`)
)

const maxPatternLen = 500

// compileURLFilter builds the match predicate, rejecting regex patterns
// that trip the backtracking guards before anything is fetched.
func compileURLFilter(pattern string, isRegex bool) (func(string) bool, error) {
	if !isRegex {
		needle := strings.ToLower(pattern)
		return func(u string) bool {
			return strings.Contains(strings.ToLower(u), needle)
		}, nil
	}

	if len(pattern) > maxPatternLen {
		return nil, fmt.Errorf("regex pattern rejected: longer than %d characters", maxPatternLen)
	}
	if nestedQuantRE.MatchString(pattern) {
		return nil, fmt.Errorf("regex pattern rejected: quantified group nested under a quantifier")
	}
	if stackedQuantRE.MatchString(pattern) {
		return nil, fmt.Errorf("regex pattern rejected: stacked quantifiers after a character class")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re.MatchString, nil
}

// datedText is one scannable message with its timestamp for ordering.
type datedText struct {
	date string
	text string
}

func extractURLs(sources []datedText, match func(string) bool) []string {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].date < sources[j].date
	})

	seen := map[string]bool{}
	var urls []string
	for _, src := range sources {
		for _, u := range urlScanRE.FindAllString(src.text, -1) {
			u = strings.TrimRight(u, ".,;:)")
			if seen[u] || !match(u) {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

func runExtractURL(cmd *cobra.Command, args []string) error {
	format := outFormat(cmd)

	isRegex, _ := cmd.Flags().GetBool("regex")
	match, err := compileURLFilter(args[0], isRegex)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	id, err := resolveChange(args[1:])
	if err != nil {
		return err
	}

	messages, err := client.GetMessages(cmd.Context(), id)
	if err != nil {
		return err
	}
	var sources []datedText
	for _, m := range messages {
		sources = append(sources, datedText{date: m.Date, text: m.Message})
	}

	if includeComments, _ := cmd.Flags().GetBool("include-comments"); includeComments {
		comments, err := client.GetComments(cmd.Context(), id)
		if err != nil {
			return err
		}
		for _, c := range comments {
			sources = append(sources, datedText{date: c.Updated, text: c.Message})
		}
	}

	urls := extractURLs(sources, match)

	switch format {
	case output.FormatXML:
		root := output.NewElem("urls").Attr("count", itoa(len(urls)))
		for _, u := range urls {
			root.ChildText("url", u)
		}
		fmt.Fprintln(stdout(), root.Render())
	case output.FormatJSON:
		return output.JSON(stdout(), output.SuccessEnvelope(output.Envelope{"urls": urls}))
	default:
		if len(urls) == 0 {
			fmt.Fprintln(stdout(), "No matching URLs.")
			return nil
		}
		for _, u := range urls {
			fmt.Fprintln(stdout(), u)
		}
	}
	return nil
}

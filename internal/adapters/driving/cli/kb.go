package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/normalisers/markdown"
)

var (
	kbQueryLimit int
	kbQueryJSON  bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the guidance knowledge base",
}

var kbRebuildCmd = &cobra.Command{
	Use:   "rebuild [dir]",
	Short: "Ingest guidance documents",
	Long: `Reads every markdown file under dir (default: knowledge.dir from the config
file), splits each on its headings and embeds the sections.

Documents are keyed by title (front matter title, first H1 or file name).
Re-ingesting a title replaces its sections; other documents are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKBRebuild,
}

var kbQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Show the guidance sections closest to text",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBQuery,
}

func init() {
	kbQueryCmd.Flags().IntVarP(&kbQueryLimit, "top", "k", 3, "number of sections to return")
	kbQueryCmd.Flags().BoolVar(&kbQueryJSON, "json", false, "output results as JSON")
	kbCmd.AddCommand(kbRebuildCmd)
	kbCmd.AddCommand(kbQueryCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBRebuild(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		settings, err := currentSettings()
		if err != nil {
			return err
		}
		dir = settings.Knowledge.Dir
	}
	if dir == "" {
		return errors.New("no guidance directory: pass one or set knowledge.dir in the config file")
	}

	docs, err := markdown.LoadDocuments(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no markdown documents in %s", domain.ErrInvalidInput, dir)
	}

	kb, err := openKnowledge(cmd.Context())
	if err != nil {
		return err
	}
	gen, err := kb.RebuildKnowledgeBase(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	cmd.Printf("Ingested %d documents from %s\n", len(docs), dir)
	cmd.Printf("Knowledge base generation: %d\n", gen)
	return nil
}

func runKBQuery(cmd *cobra.Command, args []string) error {
	kb, err := openKnowledge(cmd.Context())
	if err != nil {
		return err
	}

	hits, err := kb.QueryGuidance(cmd.Context(), args[0], kbQueryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if kbQueryJSON {
		return outputHitsJSON(cmd, hits)
	}

	if len(hits) == 0 {
		if kb.Generation() == 0 {
			cmd.Println("Knowledge base is empty. Run 'vigil kb rebuild' first.")
		} else {
			cmd.Println("No results found.")
		}
		return nil
	}

	for i := range hits {
		s := hits[i].Section
		cmd.Printf("[%d] %s > %s (%.3f)\n", i+1, s.DocumentTitle, s.Heading, hits[i].Score)
		cmd.Printf("    %s\n", snippet(s.Text, 160))
	}
	return nil
}

type hitOutput struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Heading  string  `json:"heading"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

func outputHitsJSON(cmd *cobra.Command, hits []domain.ScoredSection) error {
	out := make([]hitOutput, len(hits))
	for i := range hits {
		s := hits[i].Section
		out[i] = hitOutput{
			ID:       s.ID,
			Document: s.DocumentTitle,
			Heading:  s.Heading,
			Category: s.Category,
			Score:    hits[i].Score,
			Text:     s.Text,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet flattens text to one line of at most n runes.
func snippet(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n-3]) + "..."
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/storage"
)

const analyzeSystemPrompt = `You are an analyst for a team-based capture-the-flag shooter. You are given
structured data from a match log analysis tool and a question from the user.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise. Warn when a sample count is below 20.

Glossary:
- Team round: one team's side of one round. A round won by Red gives Red "win" and Blue "lose".
- Tag: a property of a team round. Weapon tags name the team's main weapons.
- A weapon tag reads "<weapon>_x<count>", e.g. "SteyrAUG_x2": exactly <count> players on
  the team had that weapon as their main weapon in the round. "SteyrAUG_x1" and
  "SteyrAUG_x2" are different tags.
- Correlation: Pearson correlation between carrying the tag and winning. Range -1..1.
- Samples: number of team rounds that carried the tag.
- Kills by weapon: how often a player's kills came from each weapon.`

var (
	analyzeMap  string
	analyzeTags []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-powered grounded analysis (requires an Anthropic API key)",
}

var analyzeCorrelationsCmd = &cobra.Command{
	Use:   "correlations <question>",
	Short: "Ask about tag/win correlations",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeCorrelations,
}

var analyzePlayerCmd = &cobra.Command{
	Use:   "player <player-id> <question>",
	Short: "Ask about one player's kills by weapon",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzePlayer,
}

func init() {
	pf := analyzeCmd.PersistentFlags()
	pf.String("model", "", "Anthropic model to use (default analyze.model)")
	pf.String("api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	bindFlag("analyze.model", pf.Lookup("model"))
	bindFlag("analyze.api_key", pf.Lookup("api-key"))

	analyzeCorrelationsCmd.Flags().StringVar(&analyzeMap, "map", "", "only use rounds on this map")
	analyzeCorrelationsCmd.Flags().StringSliceVar(&analyzeTags, "tag", nil, "include per-map samples for this tag (default: every weapon tag)")

	analyzeCmd.AddCommand(analyzeCorrelationsCmd)
	analyzeCmd.AddCommand(analyzePlayerCmd)
}

func runAnalyzeCorrelations(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	engine := correlation.NewEngine(db)
	mapName := strings.ToLower(analyzeMap)
	corr, err := engine.WinCorrelation(mapName)
	if err != nil {
		return err
	}
	if len(corr) == 0 {
		return fmt.Errorf("no tagged rounds stored")
	}

	tags := analyzeTags
	if len(tags) == 0 {
		if tags, err = engine.WeaponTags(); err != nil {
			return err
		}
	}
	perTag, err := engine.ForTags(tags)
	if err != nil {
		return err
	}

	contextJSON, err := buildCorrelationContext(mapName, corr, perTag)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), settings.Analyze.APIKey, settings.Analyze.Model, contextJSON, args[0])
}

func runAnalyzePlayer(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	p, err := db.PlayerStats(args[0])
	if err != nil {
		return fmt.Errorf("query stats: %w", err)
	}
	if p == nil {
		return fmt.Errorf("no data found for player %s", args[0])
	}

	contextJSON, err := buildPlayerContext(p)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), settings.Analyze.APIKey, settings.Analyze.Model, contextJSON, args[1])
}

// buildCorrelationContext serialises correlations into compact JSON.
func buildCorrelationContext(mapName string, corr map[string]float64, perTag []*correlation.TagCorrelations) (string, error) {
	type mapEntry struct {
		Map         string  `json:"map"`
		Correlation float64 `json:"correlation"`
		Samples     int     `json:"samples"`
	}
	type tagEntry struct {
		Tag          string     `json:"tag"`
		TotalSamples int        `json:"total_samples"`
		Maps         []mapEntry `json:"maps"`
	}

	tags := make([]tagEntry, 0, len(perTag))
	for _, tc := range perTag {
		e := tagEntry{Tag: tc.Tag(), TotalSamples: tc.TotalSamples()}
		for _, m := range tc.Maps() {
			e.Maps = append(e.Maps, mapEntry{Map: m, Correlation: round2(tc.Correlation(m)), Samples: tc.SampleCount(m)})
		}
		tags = append(tags, e)
	}

	scope := mapName
	if scope == "" {
		scope = "all maps"
	}
	doc := map[string]any{
		"subject":         "tag_win_correlation",
		"scope":           scope,
		"win_correlation": corr,
		"per_map_by_tag":  tags,
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// buildPlayerContext serialises one player's stats into compact JSON.
func buildPlayerContext(p *model.PlayerStats) (string, error) {
	weapons := make([]map[string]any, 0, len(p.Weapons))
	for _, w := range p.Weapons {
		share := 0.0
		if p.Kills > 0 {
			share = round2(100 * float64(w.Kills) / float64(p.Kills))
		}
		weapons = append(weapons, map[string]any{"weapon": w.Weapon, "kills": w.Kills, "share_pct": share})
	}
	doc := map[string]any{
		"subject": "player",
		"player":  p.ID,
		"overview": map[string]any{
			"matches": p.Matches,
			"rounds":  p.Rounds,
			"kills":   p.Kills,
			"deaths":  p.Deaths,
			"kd":      round2(p.KDRatio()),
		},
		"kills_by_weapon": weapons,
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)
	logger.Debugw("calling anthropic", "model", modelID, "context_bytes", len(dataJSON))

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}

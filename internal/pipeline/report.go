package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/section"
)

type reportInput struct {
	notes      []*models.Note
	sections   []*models.Section
	rewritten  []*models.RewrittenNote
	assetIndex *models.AssetIndex
	info       *section.BuildInfo
	started    time.Time
}

// buildReport renders the human-readable processing report written into the
// output tree before packaging.
func buildReport(in reportInput) string {
	elapsed := time.Since(in.started)

	rewrittenLinks, rewrittenImages := 0, 0
	unresolvedLinks, unresolvedImages := 0, 0
	for _, rn := range in.rewritten {
		rewrittenLinks += rn.RewrittenLinks
		rewrittenImages += rn.RewrittenImages
		unresolvedLinks += rn.UnresolvedLinks
		unresolvedImages += rn.UnresolvedImages
	}

	lines := []string{
		"# Nuclinotion Processing Report",
		"",
		fmt.Sprintf("**Generated:** %s", time.Now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("**Processing Time:** %.2f seconds", elapsed.Seconds()),
		"",
		"## Summary",
		"",
		fmt.Sprintf("- **Total Notes:** %d", len(in.notes)),
		fmt.Sprintf("- **Total Assets:** %d", len(in.assetIndex.ByFilename)),
		fmt.Sprintf("- **Sections Created:** %d", len(in.sections)),
		fmt.Sprintf("- **Grouping Strategy:** %s", in.info.Strategy),
		"",
		"## Sections",
		"",
	}

	for _, s := range in.sections {
		lines = append(lines,
			fmt.Sprintf("### %s", s.Label),
			fmt.Sprintf("- **Notes:** %d", len(s.Notes)),
			fmt.Sprintf("- **Sample Notes:** %s", strings.Join(s.SampleTitles, ", ")),
			"")
	}

	lines = append(lines,
		"## Assets",
		"",
		fmt.Sprintf("- **Note-specific Assets:** %d folders", len(in.assetIndex.ByNoteID)),
		fmt.Sprintf("- **Unassigned Assets:** %d files", len(in.assetIndex.Unassigned)),
		"",
		"## Link Resolution",
		"",
		fmt.Sprintf("- **Links Rewritten:** %d", rewrittenLinks),
		fmt.Sprintf("- **Images Rewritten:** %d", rewrittenImages),
		fmt.Sprintf("- **Unresolved Links:** %d", unresolvedLinks),
		fmt.Sprintf("- **Unresolved Images:** %d", unresolvedImages),
		"")

	if in.info.Strategy == models.StrategyCluster {
		lines = append(lines,
			"## Clustering Information",
			"",
			fmt.Sprintf("- **K Value:** %d", in.info.EffectiveK),
			"")
	}

	lines = append(lines,
		"## Next Steps",
		"",
		"1. Download the `notion_ready.zip` file",
		"2. Extract it to your desired location",
		"3. Import the sections into Notion",
		"4. Note: Internal links may need manual adjustment in Notion",
		"")

	return strings.Join(lines, "\n")
}

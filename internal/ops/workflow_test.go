package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/stretchr/testify/require"
)

// TestFullWorkflow exercises the complete template lifecycle:
// generate → get → test → learn → list → export → stats
func TestFullWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	defer database.Close()

	cfg := config.DefaultConfig()
	cfg.TestProviders = []string{"openai", "anthropic"}

	gen := &fakeInvoker{name: "anthropic", reply: validGenerateReply}
	factory := &fakeFactory{invokers: map[string]*fakeInvoker{
		"openai":    {name: "openai", reply: "openai answer"},
		"anthropic": {name: "anthropic", reply: "anthropic answer"},
	}}

	// 1. Generate
	genOut, err := Generate(context.Background(), database, cfg, gen, GenerateInput{
		Purpose:  "analyze data",
		Category: "analysis",
	})
	require.NoError(t, err)
	require.NotEmpty(t, genOut.ID)
	require.Equal(t, 1, genOut.Version)
	id := genOut.ID

	// 2. Get by ID
	tpl, err := Get(database, GetInput{ID: id})
	require.NoError(t, err)
	require.Equal(t, "analysis_analyze_data", tpl.Name)
	require.ElementsMatch(t, []string{"data", "goal"}, tpl.Variables)

	// 3. Test across providers
	testOut, err := TestRun(context.Background(), database, cfg, factory, TestInput{
		TemplateID: id,
		Data:       map[string]string{"data": "sales figures", "goal": "growth trends"},
	})
	require.NoError(t, err)
	require.Len(t, testOut.Results, 2)
	require.Equal(t, "Analyze sales figures for growth trends", testOut.PromptUsed)
	require.Len(t, testOut.Analysis.SuccessfulModels, 2)

	// Stored-template runs persist their results
	var recorded int
	require.NoError(t, database.QueryRow(
		"SELECT COUNT(*) FROM test_results WHERE template_id = ?", id,
	).Scan(&recorded))
	require.Equal(t, 2, recorded)

	// 4. Learn from the outcome
	learnOut, err := Learn(database, LearnInput{
		TemplateID:   id,
		Success:      true,
		QualityScore: floatPtr(0.8),
	})
	require.NoError(t, err)
	require.Equal(t, 0.8, learnOut.Rating)
	require.Equal(t, 1, learnOut.UsageCount)

	// 5. List reflects the feedback
	listOut, err := List(database, ListInput{Category: "analysis"})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, 0.8, listOut.Items[0].Rating)

	// 6. Export the library
	exportOut, err := Export(database, ExportInput{BaseDir: tmpDir})
	require.NoError(t, err)
	require.Equal(t, 1, exportOut.Count)
	require.Equal(t, filepath.Join(tmpDir, "exports"), filepath.Dir(exportOut.Path))
	_, err = os.Stat(exportOut.Path)
	require.NoError(t, err)

	// 7. Stats
	statsOut, err := Stats(database)
	require.NoError(t, err)
	require.Equal(t, 1, statsOut.TotalTemplates)
	require.Equal(t, 1, statsOut.TotalUsage)
	require.Equal(t, "analysis_analyze_data", statsOut.TopRatedName)
}

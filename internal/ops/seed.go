package ops

import (
	"database/sql"

	"github.com/promptforge/promptforge/internal/config"
)

// seedTemplate is one entry of the built-in starter library.
type seedTemplate struct {
	name        string
	category    string
	body        string
	description string
	variables   []string
}

// seedLibrary is the starter template library for common tasks. Seeding is
// idempotent: re-running updates existing rows in place via the store's
// collision rule.
var seedLibrary = []seedTemplate{
	{
		name:     "trading_market_analysis",
		category: "trading",
		body: `Analyze the following market data for {token_symbol}:

Price: ${current_price}
24h Change: {price_change_24h}%
Volume: ${volume_24h}
Market Cap: ${market_cap}

Additional metrics:
{additional_metrics}

Provide a comprehensive analysis including:
1. Price action interpretation
2. Volume analysis
3. Support/resistance levels
4. Trend identification
5. Risk assessment
6. Trading recommendation (BUY/SELL/HOLD)

Format your response as JSON with clear reasoning for each point.`,
		description: "Comprehensive market analysis prompt",
		variables:   []string{"token_symbol", "current_price", "price_change_24h", "volume_24h", "market_cap", "additional_metrics"},
	},
	{
		name:     "trading_strategy_generation",
		category: "trading",
		body: `Generate a trading strategy based on the following requirements:

Strategy Type: {strategy_type}
Asset Class: {asset_class}
Risk Tolerance: {risk_tolerance}
Time Horizon: {time_horizon}
Capital: ${capital}

Constraints:
{constraints}

Create a detailed strategy including:
1. Entry conditions with specific indicators
2. Exit conditions (profit targets and stop losses)
3. Position sizing rules
4. Risk management parameters
5. Backtestable pseudocode`,
		description: "AI-driven trading strategy generation",
		variables:   []string{"strategy_type", "asset_class", "risk_tolerance", "time_horizon", "capital", "constraints"},
	},
	{
		name:     "analysis_data_interpretation",
		category: "analysis",
		body: `Interpret the following data and provide insights:

Data Type: {data_type}
Data:
{data}

Context:
{context}

Provide:
1. Key patterns and trends
2. Anomalies or outliers
3. Statistical significance
4. Actionable insights
5. Confidence level for each insight

Format as structured JSON.`,
		description: "General data interpretation and insight extraction",
		variables:   []string{"data_type", "data", "context"},
	},
	{
		name:     "content_creation_tweet_generator",
		category: "content_creation",
		body: `Create an engaging tweet about:

Topic: {topic}
Key Points: {key_points}
Tone: {tone}
Include Hashtags: {include_hashtags}

Requirements:
- Maximum 280 characters
- Engaging and shareable
- Clear call-to-action if applicable
- Professional yet accessible

Return the tweet text only.`,
		description: "Social media content generation",
		variables:   []string{"topic", "key_points", "tone", "include_hashtags"},
	},
	{
		name:     "automation_code_generator",
		category: "automation",
		body: `Generate production-ready code for the following task:

Task: {task_description}
Language: {programming_language}
Framework: {framework}
Requirements:
{requirements}

Additional Context:
{context}

Generate:
1. Complete, working code
2. Inline comments explaining logic
3. Error handling
4. Type hints (if applicable)
5. Usage example

Follow best practices and modern patterns for {programming_language}.`,
		description: "Automated code generation",
		variables:   []string{"task_description", "programming_language", "framework", "requirements", "context"},
	},
}

// SeedOutput contains the result of the Seed operation.
type SeedOutput struct {
	Seeded int      `json:"seeded"`
	Names  []string `json:"names"`
}

// Seed bulk-loads the built-in starter library into the store.
func Seed(database *sql.DB, cfg *config.Config) (*SeedOutput, error) {
	out := &SeedOutput{}
	for _, s := range seedLibrary {
		result, err := Put(database, cfg, PutInput{
			Name:        s.name,
			Category:    s.category,
			Body:        s.body,
			Description: s.description,
			Variables:   s.variables,
		})
		if err != nil {
			return nil, err
		}
		out.Seeded++
		out.Names = append(out.Names, result.Name)
	}
	return out, nil
}

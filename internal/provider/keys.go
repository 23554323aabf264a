package provider

// Context keys written by the built-in providers. Output key sets are
// disjoint across providers; the registry enforces this at construction.
const (
	// KeyLaunchData holds the next launch's summary (LaunchInfo).
	KeyLaunchData = "launch_data"
	// KeySite holds the launch site location (Site).
	KeySite = "site"
	// KeyLaunchDate holds the scheduled launch time in RFC 3339 form.
	KeyLaunchDate = "launch_date"
	// KeyWeatherConditions holds current conditions at the site (Conditions).
	KeyWeatherConditions = "weather_conditions"
	// KeyDelayAssessment holds the launch-condition assessment (Assessment).
	KeyDelayAssessment = "delay_assessment"
	// KeyNewsSentiment holds headline sentiment for the mission (Sentiment).
	KeyNewsSentiment = "news_sentiment"
	// KeyMarketData holds space-adjacent market quotes (MarketData).
	KeyMarketData = "market_data"
)

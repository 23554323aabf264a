package registry

import (
	"github.com/skyplan-dev/skyplan/internal/provider"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Outcome tags advertised by the built-in capabilities.
const (
	// OutcomeLaunchData is launch schedule and mission information.
	OutcomeLaunchData models.Outcome = provider.KeyLaunchData
	// OutcomeWeather is current conditions at the launch site.
	OutcomeWeather models.Outcome = provider.KeyWeatherConditions
	// OutcomeNewsSentiment is headline sentiment around the mission.
	OutcomeNewsSentiment models.Outcome = provider.KeyNewsSentiment
	// OutcomeMarketData is space-adjacent market quotes and mood.
	OutcomeMarketData models.Outcome = provider.KeyMarketData
)

// BuiltinConfig carries the credentials the built-in providers need.
type BuiltinConfig struct {
	// WeatherAPIKey is the OpenWeather API key.
	WeatherAPIKey string
	// NewsAPIKey is the NewsAPI key.
	NewsAPIKey string
}

// Builtin constructs the standard registry: launch data at the root, with
// weather, news and market capabilities hanging off it.
func Builtin(cfg BuiltinConfig) (*Registry, error) {
	launch := provider.NewLaunch()
	weather := provider.NewWeather(cfg.WeatherAPIKey)
	news := provider.NewNews(cfg.NewsAPIKey)
	market := provider.NewMarket()

	return New(
		Entry{
			Descriptor: Descriptor{
				ID:       launch.ID(),
				Inputs:   launch.RequiredInputs(),
				Outputs:  launch.ProducedOutputs(),
				Outcomes: []models.Outcome{OutcomeLaunchData},
			},
			Provider: launch,
		},
		Entry{
			Descriptor: Descriptor{
				ID:        weather.ID(),
				Inputs:    weather.RequiredInputs(),
				Outputs:   weather.ProducedOutputs(),
				DependsOn: []string{launch.ID()},
				Outcomes:  []models.Outcome{OutcomeWeather},
			},
			Provider: weather,
		},
		Entry{
			Descriptor: Descriptor{
				ID:        news.ID(),
				Inputs:    news.RequiredInputs(),
				Outputs:   news.ProducedOutputs(),
				DependsOn: []string{launch.ID()},
				Outcomes:  []models.Outcome{OutcomeNewsSentiment},
			},
			Provider: news,
		},
		Entry{
			Descriptor: Descriptor{
				ID:        market.ID(),
				Inputs:    market.RequiredInputs(),
				Outputs:   market.ProducedOutputs(),
				DependsOn: []string{launch.ID()},
				Outcomes:  []models.Outcome{OutcomeMarketData},
			},
			Provider: market,
		},
	)
}

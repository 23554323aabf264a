package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// DefaultWeatherBaseURL is the public OpenWeather API.
const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// Launch-condition thresholds. A launch is considered at risk when current
// conditions violate any of these.
const (
	maxWindSpeed  = 15.0 // m/s
	minVisibility = 5.0  // km
	maxCloudCover = 80   // percent
	minTempC      = -10.0
	maxTempC      = 45.0
)

// precipitationTypes are the OpenWeather condition groups treated as
// launch-blocking precipitation.
var precipitationTypes = map[string]bool{
	"Rain":         true,
	"Snow":         true,
	"Thunderstorm": true,
	"Drizzle":      true,
}

// Conditions holds the current weather at a site.
type Conditions struct {
	// Description is the human-readable condition summary.
	Description string `json:"description"`
	// Main is the OpenWeather condition group (Clear, Rain, ...).
	Main string `json:"main"`
	// TempC is the temperature in Celsius.
	TempC float64 `json:"temp_c"`
	// WindSpeed is in m/s.
	WindSpeed float64 `json:"wind_speed"`
	// Humidity is in percent.
	Humidity int `json:"humidity"`
	// VisibilityKM is in kilometers.
	VisibilityKM float64 `json:"visibility_km"`
	// CloudCover is in percent.
	CloudCover int `json:"cloud_cover"`
}

// Assessment is the launch-condition judgement derived from Conditions.
type Assessment struct {
	// Suitable is true when no blocking issue was found.
	Suitable bool `json:"suitable"`
	// Score starts at 100 and loses points per issue.
	Score int `json:"score"`
	// Issues lists the specific problems found.
	Issues []string `json:"issues,omitempty"`
	// Recommendation is one of GO, CAUTION or NO-GO.
	Recommendation string `json:"recommendation"`
}

// Weather fetches current conditions at the launch site and assesses
// whether they could delay a launch. It depends on the launch capability
// for the site coordinates.
type Weather struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewWeather creates a weather provider against the public API.
func NewWeather(apiKey string) *Weather {
	return NewWeatherWith(DefaultWeatherBaseURL, apiKey, newHTTPClient())
}

// NewWeatherWith creates a weather provider with an explicit base URL and
// client, primarily for tests.
func NewWeatherWith(baseURL, apiKey string, hc *http.Client) *Weather {
	return &Weather{baseURL: baseURL, apiKey: apiKey, hc: hc}
}

// ID implements Provider.
func (w *Weather) ID() string { return "weather" }

// RequiredInputs implements Provider.
func (w *Weather) RequiredInputs() []string { return []string{KeySite} }

// ProducedOutputs implements Provider.
func (w *Weather) ProducedOutputs() []string {
	return []string{KeyWeatherConditions, KeyDelayAssessment}
}

// CanProcess implements Provider.
func (w *Weather) CanProcess(c models.Context) bool { return hasInputs(w, c) }

// apiWeather mirrors the fields we read from /weather.
type apiWeather struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"` // meters
	Clouds     struct {
		All int `json:"all"`
	} `json:"clouds"`
}

// Invoke fetches current conditions for the site in the context and emits
// weather_conditions plus delay_assessment.
func (w *Weather) Invoke(ctx context.Context, c models.Context) (map[string]any, error) {
	if w.apiKey == "" {
		return nil, &Error{Capability: w.ID(), Err: fmt.Errorf("OpenWeather API key not configured")}
	}

	raw, ok := c.Value(KeySite)
	if !ok {
		return nil, &Error{Capability: w.ID(), Err: fmt.Errorf("context missing %s", KeySite)}
	}
	site, ok := raw.(Site)
	if !ok {
		return nil, &Error{Capability: w.ID(), Err: fmt.Errorf("context key %s holds %T, want Site", KeySite, raw)}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(site.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(site.Longitude, 'f', 4, 64))
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	var resp apiWeather
	if err := getJSON(ctx, w.hc, w.baseURL+"/weather?"+q.Encode(), &resp); err != nil {
		return nil, &Error{Capability: w.ID(), Err: err}
	}

	cond := Conditions{
		TempC:        resp.Main.Temp,
		Humidity:     resp.Main.Humidity,
		WindSpeed:    resp.Wind.Speed,
		VisibilityKM: float64(resp.Visibility) / 1000,
		CloudCover:   resp.Clouds.All,
	}
	if len(resp.Weather) > 0 {
		cond.Main = resp.Weather[0].Main
		cond.Description = resp.Weather[0].Description
	}

	return map[string]any{
		KeyWeatherConditions: cond,
		KeyDelayAssessment:   Assess(cond),
	}, nil
}

// Assess scores current conditions against the launch thresholds.
func Assess(cond Conditions) Assessment {
	a := Assessment{Suitable: true, Score: 100}

	if cond.WindSpeed > maxWindSpeed {
		a.Suitable = false
		a.Score -= 30
		a.Issues = append(a.Issues, fmt.Sprintf("high wind speed: %.1f m/s", cond.WindSpeed))
	}
	if precipitationTypes[cond.Main] {
		a.Suitable = false
		a.Score -= 40
		a.Issues = append(a.Issues, "precipitation: "+cond.Description)
	}
	if cond.VisibilityKM < minVisibility {
		a.Suitable = false
		a.Score -= 25
		a.Issues = append(a.Issues, fmt.Sprintf("low visibility: %.1f km", cond.VisibilityKM))
	}
	if cond.CloudCover > maxCloudCover {
		a.Score -= 15
		a.Issues = append(a.Issues, fmt.Sprintf("high cloud cover: %d%%", cond.CloudCover))
	}
	if cond.TempC < minTempC || cond.TempC > maxTempC {
		a.Score -= 20
		a.Issues = append(a.Issues, fmt.Sprintf("temperature out of range: %.1f C", cond.TempC))
	}
	if a.Score < 0 {
		a.Score = 0
	}

	switch {
	case a.Suitable && a.Score >= 85:
		a.Recommendation = "GO"
	case a.Suitable:
		a.Recommendation = "CAUTION"
	default:
		a.Recommendation = "NO-GO"
	}
	return a
}

package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// DefaultLaunchBaseURL is the public SpaceX API.
const DefaultLaunchBaseURL = "https://api.spacexdata.com/v4"

// Site is a launch site location.
type Site struct {
	// Name is the full launchpad name.
	Name string `json:"name"`
	// Locality is the city or area of the pad.
	Locality string `json:"locality"`
	// Region is the state or country.
	Region string `json:"region"`
	// Latitude and Longitude are the pad coordinates.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LaunchInfo summarizes the next scheduled launch.
type LaunchInfo struct {
	// Name is the mission name.
	Name string `json:"name"`
	// DateUTC is the scheduled launch time.
	DateUTC time.Time `json:"date_utc"`
	// Rocket is the rocket name, when resolvable.
	Rocket string `json:"rocket"`
	// DaysFromNow is the whole days until launch (negative if past).
	DaysFromNow int `json:"days_from_now"`
}

// defaultSites are well-known pads used when the API returns a launch
// without usable coordinates.
var defaultSites = map[string]Site{
	"kennedy": {
		Name:     "Kennedy Space Center",
		Locality: "Cape Canaveral", Region: "Florida",
		Latitude: 28.5721, Longitude: -80.648,
	},
	"vandenberg": {
		Name:     "Vandenberg Space Force Base",
		Locality: "Lompoc", Region: "California",
		Latitude: 34.742, Longitude: -120.5724,
	},
	"starbase": {
		Name:     "Starbase",
		Locality: "Boca Chica", Region: "Texas",
		Latitude: 25.9972, Longitude: -97.156,
	},
}

// Launch fetches the next upcoming launch and its site from the SpaceX API.
type Launch struct {
	baseURL string
	hc      *http.Client
	now     func() time.Time
}

// NewLaunch creates a launch provider against the public API.
func NewLaunch() *Launch {
	return NewLaunchWith(DefaultLaunchBaseURL, newHTTPClient())
}

// NewLaunchWith creates a launch provider with an explicit base URL and
// client, primarily for tests.
func NewLaunchWith(baseURL string, hc *http.Client) *Launch {
	return &Launch{baseURL: baseURL, hc: hc, now: time.Now}
}

// ID implements Provider.
func (l *Launch) ID() string { return "launch" }

// RequiredInputs implements Provider. The launch provider is a root
// capability and needs nothing from the context.
func (l *Launch) RequiredInputs() []string { return nil }

// ProducedOutputs implements Provider.
func (l *Launch) ProducedOutputs() []string {
	return []string{KeyLaunchData, KeySite, KeyLaunchDate}
}

// CanProcess implements Provider.
func (l *Launch) CanProcess(c models.Context) bool { return hasInputs(l, c) }

// apiLaunch mirrors the fields we read from /launches/upcoming.
type apiLaunch struct {
	Name      string    `json:"name"`
	DateUTC   time.Time `json:"date_utc"`
	Rocket    string    `json:"rocket"`
	Launchpad string    `json:"launchpad"`
}

// apiLaunchpad mirrors the fields we read from /launchpads/{id}.
type apiLaunchpad struct {
	FullName  string  `json:"full_name"`
	Locality  string  `json:"locality"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// apiRocket mirrors the fields we read from /rockets/{id}.
type apiRocket struct {
	Name string `json:"name"`
}

// Invoke fetches the soonest upcoming launch, resolves its pad and rocket,
// and emits launch_data, site and launch_date.
func (l *Launch) Invoke(ctx context.Context, _ models.Context) (map[string]any, error) {
	var launches []apiLaunch
	if err := getJSON(ctx, l.hc, l.baseURL+"/launches/upcoming", &launches); err != nil {
		return nil, &Error{Capability: l.ID(), Err: err}
	}
	if len(launches) == 0 {
		return nil, &Error{Capability: l.ID(), Err: fmt.Errorf("no upcoming launches")}
	}

	// The API does not guarantee ordering; take the soonest launch.
	sort.Slice(launches, func(i, j int) bool {
		return launches[i].DateUTC.Before(launches[j].DateUTC)
	})
	next := launches[0]

	info := LaunchInfo{
		Name:        next.Name,
		DateUTC:     next.DateUTC,
		DaysFromNow: int(next.DateUTC.Sub(l.now()).Hours() / 24),
	}

	site := l.resolveSite(ctx, next.Launchpad)

	if next.Rocket != "" {
		var rocket apiRocket
		if err := getJSON(ctx, l.hc, l.baseURL+"/rockets/"+next.Rocket, &rocket); err == nil {
			info.Rocket = rocket.Name
		}
	}

	return map[string]any{
		KeyLaunchData: info,
		KeySite:       site,
		KeyLaunchDate: next.DateUTC.Format(time.RFC3339),
	}, nil
}

// resolveSite looks up the launchpad, falling back to Kennedy Space Center
// when the pad cannot be resolved or carries no coordinates.
func (l *Launch) resolveSite(ctx context.Context, padID string) Site {
	if padID != "" {
		var pad apiLaunchpad
		if err := getJSON(ctx, l.hc, l.baseURL+"/launchpads/"+padID, &pad); err == nil {
			if pad.Latitude != 0 || pad.Longitude != 0 {
				return Site{
					Name:     pad.FullName,
					Locality: pad.Locality,
					Region:   pad.Region,
					Latitude: pad.Latitude, Longitude: pad.Longitude,
				}
			}
		}
	}
	return defaultSites["kennedy"]
}

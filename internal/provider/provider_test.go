package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

func TestLaunchInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/launches/upcoming"):
			w.Write([]byte(`[
				{"name": "Starlink 200", "date_utc": "2026-10-01T12:00:00Z", "rocket": "rkt-1", "launchpad": "pad-1"},
				{"name": "Crew-15", "date_utc": "2026-09-15T08:00:00Z", "rocket": "rkt-1", "launchpad": "pad-1"}
			]`))
		case strings.Contains(r.URL.Path, "/launchpads/"):
			w.Write([]byte(`{"full_name": "Kennedy Space Center LC-39A", "locality": "Cape Canaveral", "region": "Florida", "latitude": 28.6, "longitude": -80.6}`))
		case strings.Contains(r.URL.Path, "/rockets/"):
			w.Write([]byte(`{"name": "Falcon 9"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLaunchWith(srv.URL, srv.Client())
	outputs, err := l.Invoke(context.Background(), models.NewContext())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	info, ok := outputs[KeyLaunchData].(LaunchInfo)
	if !ok {
		t.Fatalf("launch_data is %T, want LaunchInfo", outputs[KeyLaunchData])
	}
	// The soonest launch wins, not the first in the response.
	if info.Name != "Crew-15" {
		t.Errorf("launch name = %q, want Crew-15", info.Name)
	}
	if info.Rocket != "Falcon 9" {
		t.Errorf("rocket = %q, want Falcon 9", info.Rocket)
	}

	site, ok := outputs[KeySite].(Site)
	if !ok || site.Latitude != 28.6 {
		t.Errorf("site = %+v, want resolved pad at 28.6", outputs[KeySite])
	}

	if outputs[KeyLaunchDate] != "2026-09-15T08:00:00Z" {
		t.Errorf("launch_date = %v", outputs[KeyLaunchDate])
	}
}

func TestLaunchInvokeNoUpcoming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	l := NewLaunchWith(srv.URL, srv.Client())
	_, err := l.Invoke(context.Background(), models.NewContext())
	if err == nil {
		t.Fatal("expected error when no launches are returned")
	}

	var perr *Error
	if !errors.As(err, &perr) || perr.Capability != "launch" {
		t.Errorf("expected provider Error for launch, got %v", err)
	}
}

func TestLaunchSiteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/launches/upcoming"):
			w.Write([]byte(`[{"name": "Demo", "date_utc": "2026-09-15T08:00:00Z"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLaunchWith(srv.URL, srv.Client())
	outputs, err := l.Invoke(context.Background(), models.NewContext())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	site := outputs[KeySite].(Site)
	if site.Name != "Kennedy Space Center" {
		t.Errorf("expected default site fallback, got %+v", site)
	}
}

func TestWeatherInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{
			"weather": [{"main": "Clear", "description": "clear sky"}],
			"main": {"temp": 24.5, "humidity": 60},
			"wind": {"speed": 4.2},
			"visibility": 10000,
			"clouds": {"all": 10}
		}`))
	}))
	defer srv.Close()

	wp := NewWeatherWith(srv.URL, "test-key", srv.Client())
	c := models.NewContext().With(map[string]any{KeySite: Site{Latitude: 28.6, Longitude: -80.6}})

	outputs, err := wp.Invoke(context.Background(), c)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	cond := outputs[KeyWeatherConditions].(Conditions)
	if cond.Main != "Clear" || cond.TempC != 24.5 {
		t.Errorf("conditions = %+v", cond)
	}

	assess := outputs[KeyDelayAssessment].(Assessment)
	if !assess.Suitable || assess.Recommendation != "GO" {
		t.Errorf("assessment = %+v, want suitable GO", assess)
	}
}

func TestWeatherMissingAPIKey(t *testing.T) {
	wp := NewWeatherWith("http://unused", "", nil)
	c := models.NewContext().With(map[string]any{KeySite: Site{}})

	if _, err := wp.Invoke(context.Background(), c); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestWeatherRequiresSite(t *testing.T) {
	wp := NewWeatherWith("http://unused", "k", nil)
	if wp.CanProcess(models.NewContext()) {
		t.Error("CanProcess should be false without site")
	}
	if _, err := wp.Invoke(context.Background(), models.NewContext()); err == nil {
		t.Fatal("expected error without site in context")
	}
}

func TestAssessThresholds(t *testing.T) {
	tests := []struct {
		name     string
		cond     Conditions
		suitable bool
		rec      string
	}{
		{"calm", Conditions{Main: "Clear", TempC: 20, WindSpeed: 5, VisibilityKM: 10, CloudCover: 10}, true, "GO"},
		{"high wind", Conditions{Main: "Clear", TempC: 20, WindSpeed: 20, VisibilityKM: 10}, false, "NO-GO"},
		{"rain", Conditions{Main: "Rain", Description: "light rain", TempC: 20, WindSpeed: 5, VisibilityKM: 10}, false, "NO-GO"},
		{"fog", Conditions{Main: "Mist", TempC: 20, WindSpeed: 5, VisibilityKM: 2}, false, "NO-GO"},
		{"cloudy but flyable", Conditions{Main: "Clouds", TempC: 20, WindSpeed: 5, VisibilityKM: 10, CloudCover: 90}, true, "CAUTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.cond)
			if a.Suitable != tt.suitable {
				t.Errorf("suitable = %v, want %v (issues: %v)", a.Suitable, tt.suitable, a.Issues)
			}
			if a.Recommendation != tt.rec {
				t.Errorf("recommendation = %q, want %q", a.Recommendation, tt.rec)
			}
		})
	}
}

func TestNewsInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("q"), "Crew-15") {
			t.Errorf("query should mention mission, got %q", r.URL.Query().Get("q"))
		}
		w.Write([]byte(`{"articles": [
			{"title": "SpaceX celebrates successful milestone", "source": {"name": "A"}, "publishedAt": "2026-08-30T00:00:00Z"},
			{"title": "Launch delayed by anomaly", "source": {"name": "B"}, "publishedAt": "2026-08-29T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	np := NewNewsWith(srv.URL, "key", srv.Client())
	c := models.NewContext().With(map[string]any{KeyLaunchData: LaunchInfo{Name: "Crew-15"}})

	outputs, err := np.Invoke(context.Background(), c)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	s := outputs[KeyNewsSentiment].(Sentiment)
	if len(s.Headlines) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(s.Headlines))
	}
	if s.Headlines[0].Score <= 0 {
		t.Errorf("positive headline scored %f", s.Headlines[0].Score)
	}
	if s.Headlines[1].Score >= 0 {
		t.Errorf("negative headline scored %f", s.Headlines[1].Score)
	}
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, "positive"},
		{-0.5, "negative"},
		{0.1, "neutral"},
		{-0.15, "neutral"},
	}
	for _, tt := range tests {
		if got := SentimentLabel(tt.score); got != tt.want {
			t.Errorf("SentimentLabel(%f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMarketInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"bitcoin": {"usd": 90000, "usd_24h_change": 3.0},
			"ethereum": {"usd": 4200, "usd_24h_change": 1.0}
		}`))
	}))
	defer srv.Close()

	mp := NewMarketWith(srv.URL, srv.Client())
	c := models.NewContext().With(map[string]any{KeyLaunchData: LaunchInfo{Name: "Crew-15"}})

	outputs, err := mp.Invoke(context.Background(), c)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	data := outputs[KeyMarketData].(MarketData)
	if len(data.Coins) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(data.Coins))
	}
	if data.Coins["bitcoin"].PriceUSD != 90000 {
		t.Errorf("bitcoin quote = %+v", data.Coins["bitcoin"])
	}
	// Mean change 2%, score 0.2, right at the neutral boundary.
	if data.SentimentScore != 0.2 {
		t.Errorf("sentiment score = %f, want 0.2", data.SentimentScore)
	}
}

func TestInvokeHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	l := NewLaunchWith(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Invoke(ctx, models.NewContext())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

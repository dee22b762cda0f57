package laundry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const hgResponse = `{
  "by": "city_name",
  "valid_key": true,
  "results": {
    "temp": 24,
    "date": "01/12/2025",
    "description": "Tempo limpo",
    "city": "Viamão, RS",
    "humidity": 61,
    "wind_speedy": "3.09 km/h",
    "sunrise": "05:58 am",
    "sunset": "07:59 pm"
  }
}`

func TestNewWeatherClient_Validation(t *testing.T) {
	if _, err := NewWeatherClient(WeatherOpts{City: "Viamão,RS"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewWeatherClient(WeatherOpts{APIKey: "k"}); err == nil {
		t.Error("expected error without city")
	}
}

func TestWeatherClient_Forecast(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(hgResponse))
	}))
	defer srv.Close()

	c, err := NewWeatherClient(WeatherOpts{APIKey: "abc", City: "Viamão,RS", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewWeatherClient: %v", err)
	}
	f, err := c.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if f.City != "Viamão, RS" || f.Temp != 24 || f.Humidity != 61 || f.Description != "Tempo limpo" {
		t.Errorf("forecast = %+v", f)
	}
	if !strings.Contains(gotQuery, "key=abc") || !strings.Contains(gotQuery, "city_name=Viam%C3%A3o%2CRS") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestWeatherClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"bad json", http.StatusOK, `{not json`},
		{"no results", http.StatusOK, `{"valid_key": false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, _ := NewWeatherClient(WeatherOpts{APIKey: "k", City: "c", BaseURL: srv.URL})
			if _, err := c.Forecast(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDryingTip(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Chuva forte", "Vai chover"},
		{"Tempestade", "Vai chover"},
		{"Parcialmente nublado", "Dia nublado"},
		{"Sol com muitas nuvens", "Sol forte"},
		{"Neblina", "Neblina presente"},
		{"Tempo limpo", "Aproveite o dia"},
	}
	for _, tt := range tests {
		if got := dryingTip(tt.desc); !strings.Contains(got, tt.want) {
			t.Errorf("dryingTip(%q) = %q, want to contain %q", tt.desc, got, tt.want)
		}
	}
}

func TestFormatForecast(t *testing.T) {
	out := formatForecast(Forecast{City: "Viamão, RS", Temp: 18, Description: "Chuva", Humidity: 90})
	for _, want := range []string{"PREVISÃO DO TEMPO - Viamão, RS", "18°C", "90%", "Vai chover"} {
		if !strings.Contains(out, want) {
			t.Errorf("forecast text missing %q:\n%s", want, out)
		}
	}
}

package laundry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWeatherURL is the HG Brasil weather endpoint.
const DefaultWeatherURL = "https://api.hgbrasil.com/weather"

// Forecast is the current weather for a city.
type Forecast struct {
	City        string `json:"city"`
	Date        string `json:"date"`
	Temp        int    `json:"temp"`
	Description string `json:"description"`
	WindSpeedy  string `json:"wind_speedy"`
	Humidity    int    `json:"humidity"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`
}

// Forecaster fetches the current weather.
type Forecaster interface {
	Forecast(ctx context.Context) (Forecast, error)
}

// WeatherClient queries HG Brasil.
type WeatherClient struct {
	baseURL string
	key     string
	city    string
	http    *http.Client
}

// WeatherOpts holds parameters for creating a WeatherClient.
type WeatherOpts struct {
	APIKey     string
	City       string
	BaseURL    string       // defaults to DefaultWeatherURL
	HTTPClient *http.Client // defaults to a client with a 10s timeout
}

// NewWeatherClient creates a WeatherClient.
func NewWeatherClient(opts WeatherOpts) (*WeatherClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("laundry: weather: api key is required")
	}
	if opts.City == "" {
		return nil, fmt.Errorf("laundry: weather: city is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultWeatherURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WeatherClient{baseURL: opts.BaseURL, key: opts.APIKey, city: opts.City, http: opts.HTTPClient}, nil
}

// Forecast fetches the current conditions for the configured city.
func (w *WeatherClient) Forecast(ctx context.Context) (Forecast, error) {
	q := url.Values{"key": {w.key}, "city_name": {w.city}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("laundry: weather: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("laundry: weather: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Forecast{}, fmt.Errorf("laundry: weather: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return Forecast{}, fmt.Errorf("laundry: weather: status %d", resp.StatusCode)
	}
	var payload struct {
		Results *Forecast `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Forecast{}, fmt.Errorf("laundry: weather: decode: %w", err)
	}
	if payload.Results == nil {
		return Forecast{}, fmt.Errorf("laundry: weather: response has no results")
	}
	return *payload.Results, nil
}

// dryingTip picks laundry advice for a weather description.
func dryingTip(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "chuva"), strings.Contains(d, "tempestade"):
		return "🌧️ Vai chover! Evite estender roupas ao ar livre e use o varal interno."
	case strings.Contains(d, "nublado"):
		return "⛅ Dia nublado. Pode lavar, mas prefira secar em local coberto."
	case strings.Contains(d, "sol"):
		return "☀️ Sol forte! Ótimo dia para secar roupas rapidamente."
	case strings.Contains(d, "neblina"):
		return "🌫️ Neblina presente. O tempo úmido pode atrasar a secagem."
	default:
		return "🧺 Aproveite o dia para lavar suas roupas!"
	}
}

// formatForecast renders a forecast with its drying tip.
func formatForecast(f Forecast) string {
	return fmt.Sprintf("🌦️ *PREVISÃO DO TEMPO - %s*\n"+
		"📅 %s\n"+
		"🌡️ Temperatura: %d°C\n"+
		"🌤️ Condição: %s\n"+
		"💨 Vento: %s\n"+
		"💧 Umidade: %d%%\n"+
		"🌅 Nascer do Sol: %s\n"+
		"🌇 Pôr do Sol: %s\n\n"+
		"💡 *Dica:* %s\n\n"+
		"📍 *Atualizado automaticamente via HGBrasil API*",
		f.City, f.Date, f.Temp, f.Description, f.WindSpeedy, f.Humidity, f.Sunrise, f.Sunset,
		dryingTip(f.Description))
}

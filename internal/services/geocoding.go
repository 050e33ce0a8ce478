package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"caremind-backend/internal/safezone"
)

// GeocodingService handles geocoding and reverse geocoding using Google Maps API
type GeocodingService struct {
	apiKey string
	client *http.Client
}

// Coordinates represents latitude and longitude
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address represents a resolved place
type Address struct {
	FormattedAddress string           `json:"formatted_address"`
	Coordinates      Coordinates      `json:"coordinates"`
	Parts            safezone.Address `json:"parts"`
}

// GoogleGeocodeResponse represents the Google Maps Geocoding API response
type GoogleGeocodeResponse struct {
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewGeocodingService creates a new geocoding service
func NewGeocodingService() (*GeocodingService, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required")
	}

	return &GeocodingService{
		apiKey: apiKey,
		client: &http.Client{},
	}, nil
}

// ReverseGeocode resolves coordinates to a structured address. Implements
// safezone.Geocoder; failures map to safezone.ErrLookupFailed so callers
// can treat them as cosmetic.
func (s *GeocodingService) ReverseGeocode(ctx context.Context, point safezone.Coordinate) (safezone.Address, error) {
	addr, err := s.reverseGeocode(ctx, point.Latitude, point.Longitude)
	if err != nil {
		return safezone.Address{}, fmt.Errorf("%w: %v", safezone.ErrLookupFailed, err)
	}
	return addr.Parts, nil
}

// ReverseGeocodeFull resolves coordinates to the full formatted address.
func (s *GeocodingService) ReverseGeocodeFull(ctx context.Context, lat, lng float64) (*Address, error) {
	return s.reverseGeocode(ctx, lat, lng)
}

func (s *GeocodingService) reverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Add("key", s.apiKey)

	result, err := s.call(ctx, params)
	if err != nil {
		return nil, err
	}

	first := result.Results[0]
	parts := safezone.Address{Name: first.FormattedAddress}
	for _, component := range first.AddressComponents {
		for _, t := range component.Types {
			switch t {
			case "route", "street_address":
				parts.Name = component.LongName
			case "sublocality", "administrative_area_level_3":
				parts.District = component.LongName
			case "locality", "administrative_area_level_2":
				parts.City = component.LongName
			case "administrative_area_level_1":
				parts.Province = component.LongName
			}
		}
	}

	return &Address{
		FormattedAddress: first.FormattedAddress,
		Coordinates:      Coordinates{Lat: lat, Lng: lng},
		Parts:            parts,
	}, nil
}

// Geocode converts an address string to coordinates
func (s *GeocodingService) Geocode(ctx context.Context, address string) (*Address, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", s.apiKey)

	result, err := s.call(ctx, params)
	if err != nil {
		return nil, err
	}

	first := result.Results[0]
	return &Address{
		FormattedAddress: first.FormattedAddress,
		Coordinates:      first.Geometry.Location,
	}, nil
}

func (s *GeocodingService) call(ctx context.Context, params url.Values) (*GoogleGeocodeResponse, error) {
	baseURL := "https://maps.googleapis.com/maps/api/geocode/json"
	fullURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var result GoogleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "OK" {
		return nil, fmt.Errorf("geocoding API returned status: %s", result.Status)
	}

	if len(result.Results) == 0 {
		return nil, fmt.Errorf("no results found")
	}

	return &result, nil
}

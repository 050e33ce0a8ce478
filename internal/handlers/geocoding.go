package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"caremind-backend/internal/services"
)

// ReverseGeocodeRequest represents a request to reverse geocode coordinates
type ReverseGeocodeRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeocodeRequest represents a request to geocode an address
type GeocodeRequest struct {
	Address string `json:"address"`
}

// ReverseGeocode handles POST /api/geocoding/reverse
func ReverseGeocode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReverseGeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		geocodingService, err := services.NewGeocodingService()
		if err != nil {
			log.Printf("Failed to create geocoding service: %v", err)
			http.Error(w, "Geocoding service unavailable", http.StatusInternalServerError)
			return
		}

		address, err := geocodingService.ReverseGeocodeFull(r.Context(), req.Lat, req.Lng)
		if err != nil {
			log.Printf("Reverse geocoding failed: %v", err)
			http.Error(w, fmt.Sprintf("Failed to reverse geocode: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(address)
	}
}

// Geocode handles POST /api/geocoding/forward
func Geocode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Address == "" {
			http.Error(w, "Address is required", http.StatusBadRequest)
			return
		}

		geocodingService, err := services.NewGeocodingService()
		if err != nil {
			log.Printf("Failed to create geocoding service: %v", err)
			http.Error(w, "Geocoding service unavailable", http.StatusInternalServerError)
			return
		}

		address, err := geocodingService.Geocode(r.Context(), req.Address)
		if err != nil {
			log.Printf("Geocoding failed for address '%s': %v", req.Address, err)
			http.Error(w, fmt.Sprintf("Failed to geocode: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(address)
	}
}

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds one backend request
const DefaultHTTPTimeout = 10 * time.Second

// Names of the travel capabilities
const (
	SearchFlightsName = "search_flight_availability"
	SearchHotelsName  = "search_hotels"
	BookFlightName    = "book_flight"
	BookHotelName     = "book_hotel"
)

// TravelAPI is a client for the flight and hotel backend
type TravelAPI struct {
	baseURL string
	client  *http.Client
}

// NewTravelAPI creates a backend client. A nil client gets DefaultHTTPTimeout.
func NewTravelAPI(baseURL string, client *http.Client) *TravelAPI {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &TravelAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Capabilities returns all travel backend capabilities
func (a *TravelAPI) Capabilities() []Capability {
	return []Capability{a.SearchFlights(), a.SearchHotels(), a.BookFlight(), a.BookHotel()}
}

// FlightSearchArgs are the arguments of search_flight_availability
type FlightSearchArgs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// HotelSearchArgs are the arguments of search_hotels
type HotelSearchArgs struct {
	City     string `json:"city"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
	Guests   int    `json:"guests,omitempty"`
}

// FlightBookingArgs are the arguments of book_flight
type FlightBookingArgs struct {
	FlightID      string `json:"flight_id"`
	PassengerName string `json:"passenger_name,omitempty"`
	Passengers    int    `json:"passengers,omitempty"`
}

// HotelBookingArgs are the arguments of book_hotel
type HotelBookingArgs struct {
	HotelID  string `json:"hotel_id,omitempty"`
	City     string `json:"city"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests,omitempty"`
}

// Availability is the result of a search capability. Backend failures are
// reported in Error rather than failing the call, so the agent can explain them.
type Availability struct {
	Available bool   `json:"available"`
	Options   []any  `json:"options"`
	Error     string `json:"error,omitempty"`
}

// SearchFlights finds flights between two airports
func (a *TravelAPI) SearchFlights() Capability {
	return NewFunc(SearchFlightsName,
		"Checks if flights are available between two airports. Returns a small list of candidate "+
			"options sorted by price. Only call this after you have the origin, destination, and date.",
		Object(Props{
			"origin":      String("The IATA code for the origin airport"),
			"destination": String("The IATA code for the destination airport"),
		}, "origin", "destination"),
		func(ctx context.Context, args FlightSearchArgs) (any, error) {
			q := url.Values{}
			q.Set("origin", args.Origin)
			q.Set("destination", args.Destination)
			return a.search(ctx, "/flights/search", q, "flights"), nil
		})
}

// SearchHotels finds hotels in a city
func (a *TravelAPI) SearchHotels() Capability {
	return NewFunc(SearchHotelsName,
		"Searches for available hotels in a destination city for the given check-in and check-out dates.",
		Object(Props{
			"city":      String("The destination city"),
			"check_in":  String("Check-in date, YYYY-MM-DD"),
			"check_out": String("Check-out date, YYYY-MM-DD"),
			"guests":    Integer("Number of guests"),
		}, "city"),
		func(ctx context.Context, args HotelSearchArgs) (any, error) {
			q := url.Values{}
			q.Set("city", args.City)
			if args.CheckIn != "" {
				q.Set("check_in", args.CheckIn)
			}
			if args.CheckOut != "" {
				q.Set("check_out", args.CheckOut)
			}
			if args.Guests > 0 {
				q.Set("guests", fmt.Sprint(args.Guests))
			}
			return a.search(ctx, "/hotels/search", q, "hotels"), nil
		})
}

// BookFlight reserves a flight found by search_flight_availability
func (a *TravelAPI) BookFlight() Capability {
	return NewFunc(BookFlightName,
		"Books the flight with the given id and returns the booking confirmation.",
		Object(Props{
			"flight_id":      String("The id of the flight to book"),
			"passenger_name": String("Name of the lead passenger"),
			"passengers":     Integer("Number of passengers"),
		}, "flight_id"),
		func(ctx context.Context, args FlightBookingArgs) (any, error) {
			return a.post(ctx, "/flights/book", args)
		})
}

// BookHotel reserves a hotel room
func (a *TravelAPI) BookHotel() Capability {
	return NewFunc(BookHotelName,
		"Books a hotel in the destination city for the given dates and returns the booking confirmation.",
		Object(Props{
			"hotel_id":  String("The id of the hotel to book, from search_hotels"),
			"city":      String("The destination city"),
			"check_in":  String("Check-in date, YYYY-MM-DD"),
			"check_out": String("Check-out date, YYYY-MM-DD"),
			"guests":    Integer("Number of guests"),
		}, "city", "check_in", "check_out"),
		func(ctx context.Context, args HotelBookingArgs) (any, error) {
			return a.post(ctx, "/hotels/book", args)
		})
}

func (a *TravelAPI) search(ctx context.Context, path string, q url.Values, key string) Availability {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return Availability{Options: []any{}, Error: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	var body map[string]any
	if err := a.do(req, &body); err != nil {
		return Availability{Options: []any{}, Error: err.Error()}
	}
	options, _ := body[key].([]any)
	if len(options) == 0 {
		return Availability{Available: false, Options: []any{}}
	}
	return Availability{Available: true, Options: options}
}

func (a *TravelAPI) post(ctx context.Context, path string, payload any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var body map[string]any
	if err := a.do(req, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (a *TravelAPI) do(req *http.Request, dst any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

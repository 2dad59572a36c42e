package travel

// Extension fields published to clients
const (
	FieldRequirements = "requirements"
	FieldItinerary    = "itinerary"
	FieldBookings     = "bookings"
)

// Internal values of the stage graphs
const (
	RequirementsComplete = "requirements_complete"
	InterruptionMessage  = "interruption_message"
	ItineraryComplete    = "itinerary_complete"
	BookingsComplete     = "bookings_complete"
)

// Place is a city with its airport
type Place struct {
	City string `json:"city"`
	// Airport is the IATA code
	Airport string `json:"airport"`
}

// Trip is the journey the traveller asked for
type Trip struct {
	Origin        Place  `json:"origin"`
	Destination   Place  `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Travelers     int    `json:"travelers"`
}

// FlightOption is a flight returned by the availability search
type FlightOption struct {
	ID            string  `json:"id"`
	Airline       string  `json:"airline,omitempty"`
	DepartureTime string  `json:"departure_time,omitempty"`
	ArrivalTime   string  `json:"arrival_time,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// Requirements is the complete description of a trip
type Requirements struct {
	Trip Trip `json:"trip"`
	// Flight is the option the traveller confirmed
	Flight    *FlightOption `json:"flight,omitempty"`
	Budget    string        `json:"budget,omitempty"`
	Interests []string      `json:"interests,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// MissingInfo holds the question to ask when the requirements are incomplete
type MissingInfo struct {
	Question string `json:"question"`
}

// RequirementsAnswer is the structured answer of the requirements agent
type RequirementsAnswer struct {
	Requirements Requirements `json:"requirements"`
	MissingInfo  MissingInfo  `json:"missing_info"`
}

// Activity is one item of a day plan
type Activity struct {
	Time        string `json:"time,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Day is one day of an itinerary
type Day struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// Itinerary is the day by day plan of a trip
type Itinerary struct {
	Destination string `json:"destination"`
	Days        []Day  `json:"days"`
	Notes       string `json:"notes,omitempty"`
}

// PlannerAnswer is the structured answer of the planner agent
type PlannerAnswer struct {
	Itinerary Itinerary `json:"itinerary"`
}

// FlightBooking confirms a flight reservation
type FlightBooking struct {
	ReservationRef string `json:"reservation_ref"`
	FlightID       string `json:"flight_id"`
	PassengerName  string `json:"passenger_name,omitempty"`
	Status         string `json:"status,omitempty"`
}

// HotelBooking confirms a hotel reservation
type HotelBooking struct {
	ReservationRef string `json:"reservation_ref"`
	HotelID        string `json:"hotel_id,omitempty"`
	Name           string `json:"name,omitempty"`
	City           string `json:"city"`
	CheckIn        string `json:"check_in"`
	CheckOut       string `json:"check_out"`
	Status         string `json:"status,omitempty"`
}

// Bookings are the reservations made for a trip
type Bookings struct {
	Flights *FlightBooking `json:"flights,omitempty"`
	Hotels  *HotelBooking  `json:"hotels,omitempty"`
}

// BookerAnswer is the structured answer of the booker agent
type BookerAnswer struct {
	Bookings Bookings `json:"bookings"`
}

package travel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/prebuilt"
	"github.com/ManupaDev/multi-agent-travel-planner/store/memory"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
)

const searchPage = `<html><body>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fgyeongbokgung">Gyeongbokgung Palace</a>
<a class="result__snippet">The largest of the Five Grand Palaces.</a></div>
</body></html>`

// newBackend fakes the travel backend and the search engine
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /flights/search", func(w http.ResponseWriter, r *http.Request) {
		flights := []map[string]any{}
		if r.URL.Query().Get("origin") == "NRT" && r.URL.Query().Get("destination") == "ICN" {
			flights = append(flights, map[string]any{"id": "FL-1", "airline": "Korean Air", "price": 180})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"flights": flights})
	})
	mux.HandleFunc("GET /hotels/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"hotels": []map[string]any{
			{"id": "HT-7", "name": "Han River Hotel", "city": r.URL.Query().Get("city")},
		}})
	})
	mux.HandleFunc("POST /flights/book", func(w http.ResponseWriter, r *http.Request) {
		var req tool.FlightBookingArgs
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.FlightID == "SOLD-OUT" {
			http.Error(w, "flight sold out", http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "confirmed", "reservation_ref": "FL-REF-1", "flight_id": req.FlightID})
	})
	mux.HandleFunc("POST /hotels/book", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "confirmed", "reservation_ref": "HTL-REF-1"})
	})
	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newDeps(t *testing.T, model *prebuilt.ScriptedModel) Deps {
	t.Helper()
	srv := newBackend(t)
	reg := tool.NewRegistry(tool.WithLogger(log.NoOpLogger{})).
		Register(tool.NewTravelAPI(srv.URL, srv.Client()).Capabilities()...).
		Register(tool.NewWebSearch(tool.WithSearchEndpoint(srv.URL+"/search"), tool.WithSearchClient(srv.Client())))
	return Deps{
		Model:        model,
		Tools:        reg,
		Logger:       log.NoOpLogger{},
		GraphOptions: []graph.Option{graph.WithStore(memory.NewMemoryCheckpointStore())},
	}
}

func eventTypes(events []uistream.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func collectEvents(t *testing.T, ch <-chan uistream.Event) []uistream.Event {
	t.Helper()
	var out []uistream.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not end")
			return nil
		}
	}
}

func findEvent(events []uistream.Event, typ string) (uistream.Event, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return uistream.Event{}, false
}

func textDeltas(events []uistream.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == uistream.TypeTextDelta {
			out = append(out, ev.Delta)
		}
	}
	return out
}

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sunosaarthi/go-saarthi/pkg/command"
	"github.com/sunosaarthi/go-saarthi/pkg/llm"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
	"github.com/sunosaarthi/go-saarthi/pkg/wake"
)

func request(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test request failed: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := New("127.0.0.1:0", WithKeyStatus(map[string]bool{
		"GEMINI_API_KEY":      true,
		"GOOGLE_MAPS_API_KEY": false,
	}))

	resp := request(t, s, "GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		APIKeys struct {
			Status  string   `json:"status"`
			Missing []string `json:"missing"`
		} `json:"api_keys"`
		Services struct {
			Navigation string `json:"navigation"`
			LLM        string `json:"llm"`
		} `json:"services"`
	}
	decodeJSON(t, resp, &body)

	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if body.APIKeys.Status != "missing_keys" {
		t.Errorf("api_keys.status = %q, want missing_keys", body.APIKeys.Status)
	}
	if len(body.APIKeys.Missing) != 1 || body.APIKeys.Missing[0] != "GOOGLE_MAPS_API_KEY" {
		t.Errorf("missing = %v, want [GOOGLE_MAPS_API_KEY]", body.APIKeys.Missing)
	}
	if body.Services.Navigation != "mock" || body.Services.LLM != "mock" {
		t.Errorf("services = %+v, want mock providers", body.Services)
	}
}

func TestWakeDetect(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/wake/detect", WakeDetectRequest{
		Text: "suno saarthi kya haal hai",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var result wake.Result
	decodeJSON(t, resp, &result)

	if !result.Detected {
		t.Error("Expected wake phrase detected")
	}
	if result.Confidence != wake.PrimaryConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, wake.PrimaryConfidence)
	}
	if result.WakeWordFound != "suno saarthi" {
		t.Errorf("WakeWordFound = %q, want suno saarthi", result.WakeWordFound)
	}
}

func TestWakeDetectNoMatch(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/wake/detect", WakeDetectRequest{
		Text: "turn the volume up",
	})

	var result wake.Result
	decodeJSON(t, resp, &result)
	if result.Detected {
		t.Error("Expected no detection")
	}
}

func TestWakeDetectMissingText(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/wake/detect", WakeDetectRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	if body.Error != "text is required" {
		t.Errorf("error = %q, want text is required", body.Error)
	}
}

func TestLLMQuery(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query": "hello there",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)

	if body.Status != "success" {
		t.Errorf("status = %q, want success", body.Status)
	}
	if body.Response == "" {
		t.Error("Expected non-empty response")
	}
	if id, _ := body.Metadata["session_id"].(string); id == "" {
		t.Error("Expected session_id in metadata")
	}
}

func TestLLMQuerySessionReuse(t *testing.T) {
	s := New("127.0.0.1:0")

	for i := 0; i < 2; i++ {
		resp := request(t, s, "POST", "/api/llm/query", map[string]any{
			"query":   "how long to go",
			"context": map[string]any{"session_id": "fixed-id"},
		})

		var body LLMQueryResponse
		decodeJSON(t, resp, &body)
		if id, _ := body.Metadata["session_id"].(string); id != "fixed-id" {
			t.Errorf("session_id = %q, want fixed-id", id)
		}
	}

	if got := s.Sessions().Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	sess, ok := s.Sessions().Get("fixed-id")
	if !ok {
		t.Fatal("Expected session to exist")
	}
	if got := sess.TurnCount(); got != 4 {
		t.Errorf("TurnCount = %d, want 4", got)
	}
}

func TestLLMQueryContextString(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query":   "hello",
		"context": "bare-session",
	})

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)
	if id, _ := body.Metadata["session_id"].(string); id != "bare-session" {
		t.Errorf("session_id = %q, want bare-session", id)
	}
}

func TestLLMQueryTopLevelSessionID(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query":      "hello",
		"session_id": "client-id",
		"context":    map[string]any{"session_id": "other-id"},
	})

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)
	if id, _ := body.Metadata["session_id"].(string); id != "client-id" {
		t.Errorf("session_id = %q, want client-id", id)
	}
}

func TestLLMQueryFlattenedContext(t *testing.T) {
	s := New("127.0.0.1:0")

	cctx := &command.Context{
		CurrentLocation: "28.613900,77.209000",
		Destination:     "Hauz Khas",
	}
	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query":   "navigate to Connaught Place",
		"context": cctx.Flatten(),
	})

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)

	if body.Status != "success" {
		t.Fatalf("status = %q, want success", body.Status)
	}
	if dest, _ := body.Metadata["destination_change"].(string); dest != "Connaught Place" {
		t.Errorf("destination_change = %q, want Connaught Place", dest)
	}
	if _, ok := body.Metadata["new_directions"]; !ok {
		t.Error("Expected new_directions from the current_location line")
	}
	if id, _ := body.Metadata["session_id"].(string); strings.Contains(id, "current_location") {
		t.Errorf("session_id = %q, snapshot lines must not become the id", id)
	}
}

func TestLLMQueryDestinationChange(t *testing.T) {
	s := New("127.0.0.1:0")

	var notified string
	s.OnDestinationChange = func(destination string) { notified = destination }

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query": "navigate to Connaught Place",
		"context": map[string]any{
			"origin": "28.6139,77.2090",
		},
	})

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)

	if body.Response != "Okay, changing destination to Connaught Place." {
		t.Errorf("response = %q", body.Response)
	}
	if dest, _ := body.Metadata["destination_change"].(string); dest != "Connaught Place" {
		t.Errorf("destination_change = %q, want Connaught Place", dest)
	}
	if reload, _ := body.Metadata["reload_map"].(bool); !reload {
		t.Error("Expected reload_map true")
	}

	directions, ok := body.Metadata["new_directions"].(map[string]any)
	if !ok {
		t.Fatal("Expected new_directions in metadata")
	}
	routes, _ := directions["routes"].([]any)
	if len(routes) != 1 {
		t.Errorf("routes = %d, want 1", len(routes))
	}

	if notified != "Connaught Place" {
		t.Errorf("OnDestinationChange got %q, want Connaught Place", notified)
	}
}

func TestLLMQueryNoOriginSkipsDirections(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{
		"query": "take me to the airport",
	})

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)

	if dest, _ := body.Metadata["destination_change"].(string); dest != "the airport" {
		t.Errorf("destination_change = %q, want the airport", dest)
	}
	if _, ok := body.Metadata["new_directions"]; ok {
		t.Error("Expected no new_directions without an origin")
	}
}

func TestLLMQueryEmptyQuery(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{"query": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestLLMQueryProviderFailure(t *testing.T) {
	failing := llm.WithError(errors.New("provider down"))
	s := New("127.0.0.1:0", WithLLM(failing))

	resp := request(t, s, "POST", "/api/llm/query", map[string]any{"query": "hello"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body LLMQueryResponse
	decodeJSON(t, resp, &body)

	if body.Status != "error" {
		t.Errorf("status = %q, want error", body.Status)
	}
	if body.Response != llm.FallbackText {
		t.Errorf("response = %q, want fallback", body.Response)
	}
}

func TestDirections(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/directions?origin=28.6139,77.2090&destination=India+Gate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body nav.DirectionsResponse
	decodeJSON(t, resp, &body)

	if body.Status != "OK" {
		t.Errorf("Status = %q, want OK", body.Status)
	}
	if len(body.Routes) != 1 {
		t.Fatalf("Routes = %d, want 1", len(body.Routes))
	}
	if got := len(body.Routes[0].FlatSteps()); got != 3 {
		t.Errorf("Steps = %d, want 3", got)
	}
}

func TestDirectionsMissingParams(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/directions?origin=A", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestDirectionsProviderFailure(t *testing.T) {
	mock := nav.NewMockProvider()
	mock.DirectionsFunc = func(ctx context.Context, req *nav.DirectionsRequest) (*nav.DirectionsResponse, error) {
		return nil, errors.New("upstream down")
	}
	s := New("127.0.0.1:0", WithNav(mock))

	resp := request(t, s, "GET", "/api/navigation/directions?origin=A&destination=B", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	if body.Error != "upstream down" {
		t.Errorf("error = %q, want upstream down", body.Error)
	}
}

func TestGeocode(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/geocode?address=India+Gate", nil)

	var body struct {
		Status string            `json:"status"`
		Result nav.GeocodeResult `json:"result"`
	}
	decodeJSON(t, resp, &body)

	if body.Status != "success" {
		t.Errorf("status = %q, want success", body.Status)
	}
	if body.Result.Address != "India Gate" {
		t.Errorf("Address = %q, want India Gate", body.Result.Address)
	}
}

func TestGeocodeMissingAddress(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/geocode", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestPlaces(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/places?query=coffee&location=28.6139,77.2090", nil)

	var body struct {
		Status string      `json:"status"`
		Places []nav.Place `json:"places"`
	}
	decodeJSON(t, resp, &body)

	if body.Status != "success" {
		t.Errorf("status = %q, want success", body.Status)
	}
	if len(body.Places) != 3 {
		t.Errorf("Places = %d, want 3", len(body.Places))
	}
}

func TestPlacesInvalidLocation(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/places?query=coffee&location=nonsense", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestTraffic(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/traffic?origin=A&destination=B", nil)

	var body struct {
		Status      string          `json:"status"`
		TrafficInfo nav.TrafficInfo `json:"traffic_info"`
	}
	decodeJSON(t, resp, &body)

	if body.TrafficInfo.Level != nav.TrafficModerate {
		t.Errorf("Level = %q, want moderate", body.TrafficInfo.Level)
	}
	if body.TrafficInfo.DelayMinutes != 5 {
		t.Errorf("DelayMinutes = %d, want 5", body.TrafficInfo.DelayMinutes)
	}
}

func TestTrafficMissingParams(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/api/navigation/traffic?origin=A", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestStateEndpoint(t *testing.T) {
	s := New("127.0.0.1:0")

	s.UpdateState(func(st *protocol.StateData) {
		st.Phase = "speaking"
		st.Destination = "India Gate"
		st.Running = true
	})

	resp := request(t, s, "GET", "/api/state", nil)

	var state protocol.StateData
	decodeJSON(t, resp, &state)

	if state.Phase != "speaking" {
		t.Errorf("Phase = %q, want speaking", state.Phase)
	}
	if state.Destination != "India Gate" {
		t.Errorf("Destination = %q, want India Gate", state.Destination)
	}
	if !state.Running {
		t.Error("Expected Running true")
	}
}

func TestLogsRing(t *testing.T) {
	s := New("127.0.0.1:0")

	for i := 0; i < maxLogEntries+5; i++ {
		s.AddLog("info", fmt.Sprintf("entry %d", i))
	}

	resp := request(t, s, "GET", "/api/logs", nil)

	var logs []LogEntry
	decodeJSON(t, resp, &logs)

	if len(logs) != maxLogEntries {
		t.Fatalf("len = %d, want %d", len(logs), maxLogEntries)
	}
	if logs[0].Message != "entry 5" {
		t.Errorf("first = %q, want entry 5", logs[0].Message)
	}
	if logs[len(logs)-1].Message != fmt.Sprintf("entry %d", maxLogEntries+4) {
		t.Errorf("last = %q", logs[len(logs)-1].Message)
	}
}

func TestRoot(t *testing.T) {
	s := New("127.0.0.1:0")

	resp := request(t, s, "GET", "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		App    string `json:"app"`
		Status string `json:"status"`
	}
	decodeJSON(t, resp, &body)
	if body.App != "Suno Saarthi API" {
		t.Errorf("app = %q", body.App)
	}
}

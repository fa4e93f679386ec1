package web

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sunosaarthi/go-saarthi/pkg/command"
	"github.com/sunosaarthi/go-saarthi/pkg/geo"
	"github.com/sunosaarthi/go-saarthi/pkg/llm"
	"github.com/sunosaarthi/go-saarthi/pkg/nav"
	"github.com/sunosaarthi/go-saarthi/pkg/protocol"
)

// WakeDetectRequest is the body for /api/wake/detect.
type WakeDetectRequest struct {
	Text string `json:"text"`
}

// LLMQueryRequest is the body for /api/llm/query. Context carries the
// client's situation snapshot: either a key/value object, "- key: value"
// lines as command.Context flattens them, or a bare session ID string.
// A top-level session_id wins over one found in the context.
type LLMQueryRequest struct {
	Query     string          `json:"query"`
	Context   json.RawMessage `json:"context,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// LLMQueryResponse is the reply from /api/llm/query. Metadata always
// carries session_id; destination changes add destination_change,
// reload_map and, when an origin is known, new_directions.
type LLMQueryResponse struct {
	Response string         `json:"response"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func badGateway(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
}

// handleRoot returns basic service identification.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"app":     "Suno Saarthi API",
		"version": "0.1.0",
		"status":  "running",
	})
}

// handleHealth reports key and service status.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	names := make([]string, 0, len(s.keys))
	for name := range s.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	missing := make([]string, 0)
	for _, name := range names {
		if !s.keys[name] {
			missing = append(missing, name)
		}
	}
	keyStatus := "ok"
	if len(missing) > 0 {
		keyStatus = "missing_keys"
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"api_keys":  fiber.Map{"status": keyStatus, "missing": missing},
		"services":  fiber.Map{"navigation": s.nav.Name(), "llm": s.llm.Name()},
	})
}

// handleWakeDetect checks a transcript for a wake phrase.
func (s *Server) handleWakeDetect(c *fiber.Ctx) error {
	var req WakeDetectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	s.AddLog("wake_word", fmt.Sprintf("received text: %q", req.Text))

	result, err := s.wake.Detect(c.Context(), req.Text)
	if err != nil {
		return badGateway(c, err)
	}

	s.AddLog("wake_word_result", fmt.Sprintf("detected=%v confidence=%.2f phrase=%q",
		result.Detected, result.Confidence, result.WakeWordFound))
	return c.JSON(result)
}

// handleLLMQuery runs a conversational query through the provider
// chain with session history and destination change detection.
func (s *Server) handleLLMQuery(c *fiber.Ctx) error {
	var req LLMQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Query == "" {
		return badRequest(c, "query is required")
	}

	ctxID, contextMap := parseQueryContext(req.Context)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = ctxID
	}
	sess := s.sessions.GetOrCreate(sessionID)

	s.AddLog("command", fmt.Sprintf("query %q session=%s", req.Query, sess.ID()))

	resp, err := s.llm.Complete(c.Context(), &llm.Request{
		System: llm.Persona,
		Prompt: llm.BuildPrompt(req.Query, contextMap),
	})
	if err != nil {
		s.AddLog("error", "completion failed: "+err.Error())
		s.publishResponse(protocol.ResponseData{
			Text:      llm.FallbackText,
			SessionID: sess.ID(),
			Fallback:  true,
		})
		return c.JSON(LLMQueryResponse{
			Response: llm.FallbackText,
			Status:   "error",
			Metadata: map[string]any{"session_id": sess.ID()},
		})
	}

	sess.AddTurn("user", req.Query)
	sess.AddTurn("assistant", resp.Text)

	metadata := map[string]any{"session_id": sess.ID()}
	event := protocol.ResponseData{Text: resp.Text, SessionID: sess.ID()}

	if dest, ok := command.ParseDestinationChange(resp.Text); ok {
		metadata["destination_change"] = dest
		metadata["reload_map"] = true
		event.DestinationChange = dest
		event.ReloadMap = true

		if origin := contextOrigin(contextMap); origin != "" {
			directions, err := s.nav.Directions(c.Context(), &nav.DirectionsRequest{
				Origin:      origin,
				Destination: dest,
			})
			if err != nil {
				s.AddLog("error", "directions for new destination failed: "+err.Error())
			} else {
				metadata["new_directions"] = directions
			}
		}

		if s.OnDestinationChange != nil {
			s.OnDestinationChange(dest)
		}
	}

	s.publishResponse(event)
	return c.JSON(LLMQueryResponse{
		Response: resp.Text,
		Status:   "success",
		Metadata: metadata,
	})
}

// parseQueryContext splits the request context into a session ID and
// free-form key/value pairs. Objects carry values directly with an
// optional session_id key; strings are snapshot lines when they look
// like one, otherwise a bare session ID.
func parseQueryContext(raw json.RawMessage) (string, map[string]any) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if m := unflattenContext(s); m != nil {
			return "", m
		}
		return s, nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", nil
	}
	id, _ := m["session_id"].(string)
	return id, m
}

// unflattenContext parses "- key: value" snapshot lines, the form
// command.Context.Flatten produces, back into a map. It returns nil
// when s is not in that form.
func unflattenContext(s string) map[string]any {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "- ") {
		return nil
	}

	m := make(map[string]any)
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
		key, value, ok := strings.Cut(line, ": ")
		if !ok || key == "" {
			continue
		}
		m[key] = value
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// contextOrigin pulls the caller's position from the query context,
// preferring an explicit origin over the current_location fallback.
func contextOrigin(contextMap map[string]any) string {
	for _, key := range []string{"origin", "current_location"} {
		if v, ok := contextMap[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) publishResponse(data protocol.ResponseData) {
	if msg, err := protocol.NewResponseMessage(data); err == nil {
		s.eventHub.BroadcastEvent(msg)
	}
}

// handleDirections finds routes between two points.
func (s *Server) handleDirections(c *fiber.Ctx) error {
	req := &nav.DirectionsRequest{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Mode:        c.Query("mode"),
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := s.nav.Directions(c.Context(), req)
	if err != nil {
		return badGateway(c, err)
	}
	return c.JSON(resp)
}

// handleGeocode resolves an address to coordinates.
func (s *Server) handleGeocode(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" {
		return badRequest(c, "address is required")
	}

	result, err := s.nav.Geocode(c.Context(), address)
	if err != nil {
		return badGateway(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "result": result})
}

// handlePlaces searches for points of interest.
func (s *Server) handlePlaces(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query is required")
	}

	var near geo.LatLng
	if loc := c.Query("location"); loc != "" {
		parsed, err := nav.ParseLatLng(loc)
		if err != nil {
			return badRequest(c, "invalid location: "+err.Error())
		}
		near = parsed
	}

	places, err := s.nav.Places(c.Context(), query, near)
	if err != nil {
		return badGateway(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "places": places})
}

// handleTraffic reports congestion between two points.
func (s *Server) handleTraffic(c *fiber.Ctx) error {
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		return badRequest(c, "origin and destination are required")
	}

	info, err := s.nav.Traffic(c.Context(), origin, destination)
	if err != nil {
		return badGateway(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "traffic_info": info})
}

// handleState returns the current gateway state.
func (s *Server) handleState(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// handleLogs returns the debug log ring, oldest first.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

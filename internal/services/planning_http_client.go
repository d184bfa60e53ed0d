package services

import (
	"context"
	"fmt"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/tidwall/gjson"
)

// HTTPPlanner talks to a planning service over JSON HTTP. Free-text requests
// are sent as {"text": ...}; uniform requests as {"origin", "destination", "mode"}.
type HTTPPlanner struct {
	url  string
	http *HTTPRequestService
}

// NewHTTPPlanner creates a planner posting to url through the shared HTTP service.
func NewHTTPPlanner(url string, http *HTTPRequestService) *HTTPPlanner {
	return &HTTPPlanner{url: url, http: http}
}

// Backend returns "http".
func (p *HTTPPlanner) Backend() string {
	return "http"
}

// Plan posts the request and parses the route1/route1Info answer.
func (p *HTTPPlanner) Plan(ctx context.Context, req traveltypes.PlanRequest) (*traveltypes.PlanResponse, error) {
	if p.url == "" {
		return nil, fmt.Errorf("%w: planner url not configured", traveltypes.ErrPlanningService)
	}

	logger.Debug("Posting plan request", "url", p.url, "free_text", req.IsFreeText())
	resp, err := p.http.PostJSON(ctx, p.url, req, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", traveltypes.ErrPlanningService, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: planner returned %s", traveltypes.ErrPlanningService, resp.Status)
	}
	return ParsePlanResponse(resp.Body)
}

// ParsePlanResponse decodes a planner answer. The legs live under
// response.route1 and the metrics under response.route1Info; the response
// wrapper is optional. Text around the JSON object, such as markdown code
// fences from a language model, is ignored.
func ParsePlanResponse(body []byte) (*traveltypes.PlanResponse, error) {
	raw := extractJSONObject(string(body))
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: response is not a JSON object", traveltypes.ErrPlanningService)
	}

	root := gjson.Parse(raw)
	if wrapped := root.Get("response"); wrapped.IsObject() {
		root = wrapped
	}

	route := root.Get("route1")
	if !route.IsArray() {
		return nil, fmt.Errorf("%w: response has no route1 legs", traveltypes.ErrPlanningService)
	}

	plan := &traveltypes.PlanResponse{}
	for _, item := range route.Array() {
		plan.Legs = append(plan.Legs, traveltypes.Leg{
			Start:         item.Get("start").String(),
			End:           item.Get("end").String(),
			Mode:          traveltypes.ParseMode(item.Get("modeOfTransport").String()),
			TimeTaken:     item.Get("timeTaken").String(),
			Distance:      item.Get("distance").String(),
			TransportName: item.Get("nameOfTransport").String(),
			Cost:          optionalString(item.Get("totalCost")),
			Calories:      optionalString(item.Get("calories")),
		})
	}

	info := root.Get("route1Info")
	plan.TotalTime = minutesText(info.Get("totalTime").String())
	plan.Distance = info.Get("distance").String()
	plan.Efficiency = optionalString(info.Get("efficiency"))
	plan.Health = optionalString(info.Get("health"))
	plan.Effectiveness = optionalString(info.Get("effectiveness"))
	plan.Description = info.Get("description").String()
	plan.StepsNeeded = int(info.Get("stepsNeeded").Int())
	if plan.StepsNeeded < 0 {
		plan.StepsNeeded = 0
	}
	return plan, nil
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

// minutesText turns a bare number of minutes into "N mins".
func minutesText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }) == -1 {
		return s + " mins"
	}
	return s
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

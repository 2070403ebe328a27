package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type client struct {
	base string
	http *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body any, want int, out any) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		log.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, want, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func main() {
	addr := os.Getenv("LIFEDROP_HTTP_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	c := &client{base: "http://" + addr, http: &http.Client{Timeout: 10 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	c.do(ctx, http.MethodPost, "/v1/registration/reset", nil, http.StatusOK, nil)

	email := fmt.Sprintf("smoke-%d@lifedrop.test", time.Now().UnixNano())
	c.do(ctx, http.MethodPost, "/v1/registration/basic", map[string]string{
		"name":            "Smoke Donor",
		"email":           email,
		"password":        "secret1",
		"confirmPassword": "secret1",
	}, http.StatusOK, nil)

	var reg struct {
		User struct {
			ID        string `json:"id"`
			BloodType string `json:"bloodType"`
		} `json:"user"`
		Session struct {
			IsAuthenticated bool `json:"isAuthenticated"`
		} `json:"session"`
	}
	c.do(ctx, http.MethodPost, "/v1/registration/submit", map[string]string{
		"phone":     "+1 555 0100",
		"bloodType": "O-",
		"location":  "Metro",
	}, http.StatusCreated, &reg)
	if !reg.Session.IsAuthenticated || reg.User.ID == "" {
		log.Fatalf("registration did not sign in: %+v", reg)
	}

	c.do(ctx, http.MethodPost, "/v1/blood/requests", map[string]any{
		"bloodType":     "O-",
		"urgency":       "Critical",
		"unitsNeeded":   2,
		"hospitalName":  "City General",
		"contactNumber": "+1 555 0199",
	}, http.StatusCreated, nil)
	var urgent struct {
		Requests []struct {
			Urgency string `json:"urgency"`
		} `json:"requests"`
	}
	c.do(ctx, http.MethodGet, "/v1/blood/requests/urgent", nil, http.StatusOK, &urgent)
	if len(urgent.Requests) == 0 || urgent.Requests[0].Urgency != "Critical" {
		log.Fatalf("critical request missing from urgent feed: %+v", urgent)
	}

	c.do(ctx, http.MethodPost, "/v1/blood/donations", map[string]any{
		"donationCenter": "Red Cross Blood Center",
	}, http.StatusCreated, nil)
	c.do(ctx, http.MethodPost, "/v1/blood/donors/search", map[string]any{
		"bloodType": "O-",
		"urgency":   "Critical",
	}, http.StatusOK, nil)

	var stats struct {
		LivesSaved         int `json:"livesSaved"`
		ScheduledDonations int `json:"scheduledDonations"`
	}
	c.do(ctx, http.MethodGet, "/v1/profile/stats", nil, http.StatusOK, &stats)
	if stats.ScheduledDonations < 1 {
		log.Fatalf("scheduled donation not counted: %+v", stats)
	}

	c.do(ctx, http.MethodPost, "/v1/session/logout", nil, http.StatusOK, nil)
	var after struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	}
	c.do(ctx, http.MethodGet, "/v1/session", nil, http.StatusOK, &after)
	if after.IsAuthenticated {
		log.Fatal("session still authenticated after logout")
	}

	fmt.Printf("lifedropd smoke test passed: user=%s\n", reg.User.ID)
}

package model

import "time"

// HubStats is the diagnostics snapshot served by the stats endpoint.
type HubStats struct {
	TotalUsers       int            `json:"total_users"`
	TotalConnections int            `json:"total_connections"`
	Uptime           time.Duration  `json:"uptime"`
	Users            map[string]int `json:"users"`
}

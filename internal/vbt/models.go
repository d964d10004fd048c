package vbt

import (
	"encoding/json"
	"time"
)

// RawSet is the unprocessed payload an ESP32 bar sensor uploads for one
// set, kept for reprocessing.
type RawSet struct {
	ID        string          `json:"id"`
	PlayerID  string          `json:"player_id"`
	TeamID    string          `json:"team_id"`
	Exercise  string          `json:"exercise"`
	DeviceID  *string         `json:"device_id"`
	Samples   json.RawMessage `json:"samples"`
	Processed bool            `json:"processed"`
	CreatedAt time.Time       `json:"created_at"`
}

type Rep struct {
	ID                 string          `json:"id"`
	RawSetID           string          `json:"raw_set_id"`
	PlayerID           string          `json:"player_id"`
	Exercise           string          `json:"exercise"`
	RepNumber          int             `json:"rep_number"`
	MeanVelocity       float64         `json:"mean_velocity"`
	PeakVelocity       float64         `json:"peak_velocity"`
	EccentricDuration  *float64        `json:"eccentric_duration"`
	ConcentricDuration *float64        `json:"concentric_duration"`
	RomMeters          *float64        `json:"rom_meters"`
	TimeToPeakVel      *float64        `json:"time_to_peak_vel"`
	VelocityLossPct    *float64        `json:"velocity_loss_pct"`
	BarPathDeviation   *float64        `json:"bar_path_deviation"`
	Flagged            bool            `json:"flagged"`
	FlagReason         *string         `json:"flag_reason"`
	Samples            json.RawMessage `json:"samples"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SetSummary is the per-set rollup the dashboard and the compliance
// aggregation read; one row per processed raw set.
type SetSummary struct {
	ID           string    `json:"id"`
	RawSetID     string    `json:"raw_set_id"`
	PlayerID     string    `json:"player_id"`
	Exercise     string    `json:"exercise"`
	RepCount     int       `json:"rep_count"`
	AvgVelocity  float64   `json:"avg_velocity"`
	PeakVelocity float64   `json:"peak_velocity"`
	VelocityLoss *float64  `json:"velocity_loss"`
	Estimated1RM *float64  `json:"estimated_1rm"`
	Flagged      bool      `json:"flagged"`
	FlagReason   *string   `json:"flag_reason"`
	CreatedAt    time.Time `json:"created_at"`
}

package teleop

import "context"

// Device holds the attributes fetched at session start.
type Device struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Position Position `json:"position"`
	// Seq is the device side update counter at fetch time.
	Seq uint64 `json:"seq"`
	// Arena is the device side arena. Zero when the lookup does not report one.
	Arena Arena `json:"arena"`
}

// Lookup fetches device attributes by id.
type Lookup interface {
	GetDevice(ctx context.Context, id string) (Device, error)
}

package model

import "time"

// Company is the entreprise in charge of repairing reported incidents.
// Companies are looked up by exact trimmed name and created on demand.
type Company struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

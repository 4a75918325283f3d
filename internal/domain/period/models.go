package period

import "time"

type Period struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

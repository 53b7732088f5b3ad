package server

import (
	"time"

	"github.com/google/uuid"
)

func generateID() string {
	return uuid.NewString()
}

// mbPerSecond returns throughput in MB/s since start.
func mbPerSecond(n int64, start time.Time) float64 {
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed / 1024 / 1024
}

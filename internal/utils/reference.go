package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// OrderReference builds the idempotency reference for a point dispensation
// triggered by a delivered order.
func OrderReference(orderID uuid.UUID) string {
	return fmt.Sprintf("ORDER-%s", orderID)
}

// GenerateBatchID generates a unique identifier for a backfill batch
func GenerateBatchID(prefix string) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, 8)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}

	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, string(result))
}

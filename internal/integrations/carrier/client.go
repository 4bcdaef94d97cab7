package carrier

import (
	"context"

	"github.com/BearBump/DeliveryMonitor/internal/models"
)

// Client is the carrier port used by the sync orchestrator.
// A shipment unknown to the carrier yields an empty timeline, not an error.
type Client interface {
	FetchStatuses(ctx context.Context, trackingCode string) ([]models.RawStatus, error)
}

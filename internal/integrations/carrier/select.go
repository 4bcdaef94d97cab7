package carrier

import (
	"time"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier/fake"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/cdek"
	"go.uber.org/zap"
)

// FromConfig returns the CDEK client, or the in-process fake when use_fake is set.
func FromConfig(cfg config.CDEKConfig, log *zap.Logger) Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UseFake {
		log.Warn("using fake carrier, statuses are synthetic")
		return fake.New()
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Warn("CDEK credentials are empty, every lookup will fail authentication")
	}
	return cdek.New(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret,
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second,
		cdek.WithLogger(log.Named("cdek")),
	)
}

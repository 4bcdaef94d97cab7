package carrier

import (
	"testing"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier/fake"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/cdek"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.CDEKConfig{UseFake: true, ClientID: "id", ClientSecret: "s"}, nil)
	_, ok := c.(*fake.FakeClient)
	require.True(t, ok)

	c = FromConfig(config.CDEKConfig{BaseURL: "http://cdek.local/v2", ClientID: "id", ClientSecret: "s", RequestTimeoutSeconds: 5}, nil)
	_, ok = c.(*cdek.Client)
	require.True(t, ok)

	c = FromConfig(config.CDEKConfig{BaseURL: "http://cdek.local/v2"}, nil)
	_, ok = c.(*cdek.Client)
	require.True(t, ok)
}

package postgres

import (
	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        EngineName,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+",
		},
		Connect: Connect,
	})
}

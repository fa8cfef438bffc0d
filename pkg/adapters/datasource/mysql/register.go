package mysql

import (
	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        EngineName,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 8+ and MariaDB 10.5+",
		},
		Connect: Connect,
	})
}

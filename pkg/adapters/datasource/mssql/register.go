package mssql

import (
	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        EngineName,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2016+ with SQL authentication",
		},
		Connect: Connect,
	})
}

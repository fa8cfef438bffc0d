package sqlite

import (
	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        EngineName,
			DisplayName: "SQLite",
			Description: "Embedded file database (pure Go driver)",
			FileBased:   true,
		},
		Connect: Connect,
	})
}

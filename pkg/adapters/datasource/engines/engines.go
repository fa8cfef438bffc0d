// Package engines links every engine adapter into the binary. Import it for its side effects.
package engines

import (
	_ "github.com/desa-digital/portal-engine/pkg/adapters/datasource/mssql"
	_ "github.com/desa-digital/portal-engine/pkg/adapters/datasource/mysql"
	_ "github.com/desa-digital/portal-engine/pkg/adapters/datasource/postgres"
	_ "github.com/desa-digital/portal-engine/pkg/adapters/datasource/sqlite"
)

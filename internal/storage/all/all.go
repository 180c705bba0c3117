// Package all registers every storage backend with the storage factory.
// Binaries import it for side effects; the configuration selects the kind.
package all

import (
	_ "healthwealth/internal/storage/mssql"
	_ "healthwealth/internal/storage/mysql"
	_ "healthwealth/internal/storage/postgres"
	_ "healthwealth/internal/storage/sqlite"
)

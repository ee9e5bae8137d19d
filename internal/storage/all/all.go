// Package all registers every storage backend and the SQL Server driver.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "dataprep/internal/storage/mssql"
	_ "dataprep/internal/storage/postgres"
	_ "dataprep/internal/storage/sqlite"
)

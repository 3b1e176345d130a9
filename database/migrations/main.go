// Prints the DDL of the gorm models, used to author new goose migrations.
package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"
	"github.com/40acres/htlcswap/database/models"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(&models.Swap{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}

	enumStmts := models.CreateSwapStatusEnumSQL() + "\n" + models.CreateSwapOutcomeEnumSQL() + "\n"
	stmts = enumStmts + stmts

	if _, err := io.WriteString(os.Stdout, stmts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to stdout: %v\n", err)
		os.Exit(1)
	}
}

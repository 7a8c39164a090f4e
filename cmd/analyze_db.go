package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablescope/internal/source"
	"github.com/KaramelBytes/tablescope/internal/table"
)

var (
	dbDialect    string
	dbDSN        string
	dbTable      string
	dbQuery      string
	dbLimit      int
	dbListTables bool
	dbEngine     engineFlags
)

var analyzeDBCmd = &cobra.Command{
	Use:   "analyze-db",
	Short: "Analyze a table or query result from a SQL database",
	Long: `Connects to PostgreSQL, MySQL, SQL Server or SQLite and analyzes one table
(the first one when --table is omitted) or the result of --query.

Examples:
  tablescope analyze-db --dialect postgres --dsn "postgres://u:p@localhost/shop" --table orders
  tablescope analyze-db --dialect sqlite --dsn ./local.db --list-tables
  tablescope analyze-db --dialect mysql --dsn "u:p@tcp(localhost:3306)/shop" --query "SELECT * FROM users WHERE active = 1"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		dialect, dsn, limit := dbDialect, dbDSN, dbLimit
		if dialect == "" {
			dialect = c.DBDialect
		}
		if dsn == "" {
			dsn = c.DBDSN
		}
		if !cmd.Flags().Changed("limit") {
			limit = c.DBLimit
		}
		if dsn == "" {
			return fmt.Errorf("--dsn is required (or set db_dsn in config)")
		}
		if dbTable != "" && dbQuery != "" {
			return fmt.Errorf("use either --table or --query, not both")
		}

		ctx := cmd.Context()
		src, err := source.Open(ctx, dialect, dsn, logger)
		if err != nil {
			return err
		}
		defer src.Close()

		out := cmd.OutOrStdout()
		if dbListTables {
			tables, err := src.ListTables(ctx)
			if err != nil {
				return err
			}
			for _, name := range tables {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		var (
			t    *table.Table
			name string
		)
		if dbQuery != "" {
			t, err = src.Query(ctx, dbQuery)
			name = "query"
		} else {
			t, name, err = src.ReadTable(ctx, dbTable, limit)
		}
		if err != nil {
			return err
		}
		if t.RowCount() == 0 {
			return fmt.Errorf("%s returned no rows", name)
		}
		rep, err := runAnalysis(ctx, &dbEngine, name, t)
		if err != nil {
			return err
		}
		return writeReport(out, rep, dbEngine.format)
	},
}

func init() {
	rootCmd.AddCommand(analyzeDBCmd)
	f := analyzeDBCmd.Flags()
	f.StringVar(&dbDialect, "dialect", "", "database dialect: postgres | mysql | sqlserver | sqlite (default from config)")
	f.StringVar(&dbDSN, "dsn", "", "connection string (default from config)")
	f.StringVar(&dbTable, "table", "", "table to analyze (first table if omitted)")
	f.StringVar(&dbQuery, "query", "", "analyze the result of this query instead of a table")
	f.IntVar(&dbLimit, "limit", 0, "maximum rows to read from a table (0 = unlimited, default from config)")
	f.BoolVar(&dbListTables, "list-tables", false, "list tables and exit")
	dbEngine.register(f)
}

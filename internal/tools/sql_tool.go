package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/models"
)

const QueryDatabaseToolName = "query_database"

// Querier is the read side of the relational snapshot.
type Querier interface {
	Query(ctx context.Context, query string, maxRows int) ([]models.Record, error)
}

type QueryDatabaseInput struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit,omitempty"`
}

type QueryDatabaseOutput struct {
	Rows     []models.Record `json:"rows"`
	RowCount int             `json:"row_count"`
	Error    string          `json:"error,omitempty"`
}

// NewQueryDatabaseTool exposes read-only SQL over the snapshot to an agent.
// Query errors are returned inside the output so the model can correct its SQL.
func NewQueryDatabaseTool(db Querier, maxRows int) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: QueryDatabaseToolName,
			Desc: "Run a read-only SQLite SELECT statement against the reservations snapshot and return the rows as JSON",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"sql": {
					Type:     "string",
					Desc:     "A single SELECT (or WITH ... SELECT) statement",
					Required: true,
				},
				"limit": {
					Type:     "integer",
					Desc:     fmt.Sprintf("Maximum rows to return (default and cap: %d)", maxRows),
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input QueryDatabaseInput) (*QueryDatabaseOutput, error) {
			if strings.TrimSpace(input.SQL) == "" {
				return &QueryDatabaseOutput{Error: "sql parameter is required"}, nil
			}
			limit := input.Limit
			if limit <= 0 || limit > maxRows {
				limit = maxRows
			}

			logs.Debugf("[Tool] %s: %s\n", QueryDatabaseToolName, input.SQL)
			rows, err := db.Query(ctx, input.SQL, limit)
			if err != nil {
				logs.Debugf("[Tool] %s failed: %v\n", QueryDatabaseToolName, err)
				return &QueryDatabaseOutput{Error: err.Error()}, nil
			}
			if rows == nil {
				rows = []models.Record{}
			}
			return &QueryDatabaseOutput{Rows: rows, RowCount: len(rows)}, nil
		},
	)
}

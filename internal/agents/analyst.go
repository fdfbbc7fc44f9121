package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/consts"
	"github.com/itzana/itzanago/internal/storage"
	"github.com/itzana/itzanago/internal/tools"
	"github.com/itzana/itzanago/internal/utils"
	"github.com/itzana/itzanago/models"
)

const toolMaxRows = 200

// Snapshot is what the analyst needs from the relational snapshot.
type Snapshot interface {
	tools.Querier
	Describe(ctx context.Context) ([]storage.TableInfo, error)
}

// AnalyticalAgent answers a question by querying the snapshot through a
// ReAct loop and returning a structured result.
type AnalyticalAgent struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
	snapshot Snapshot
}

func NewAnalyticalAgent(ctx context.Context, cm model.ToolCallingChatModel, snap Snapshot, maxSteps int) (*AnalyticalAgent, error) {
	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		MaxStep:          maxSteps,
		ToolCallingModel: cm,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: []tool.BaseTool{tools.NewQueryDatabaseTool(snap, toolMaxRows)},
		},
		StreamToolCallChecker: ToolCallChecker,
	})
	if err != nil {
		return nil, fmt.Errorf("create analyst agent: %w", err)
	}
	agentLambda, err := compose.AnyLambda(agent.Generate, agent.Stream, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create analyst lambda: %w", err)
	}

	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage("{system_message}"),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendLambda(agentLambda)
	r, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile analyst chain: %w", err)
	}
	return &AnalyticalAgent{runnable: r, snapshot: snap}, nil
}

func (a *AnalyticalAgent) Analyze(ctx context.Context, question string) (*models.AnalyticalResult, error) {
	tables, err := a.snapshot.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe snapshot: %w", err)
	}
	systemPrompt, err := utils.LoadPromptWithContext(consts.AnalystAgent, map[string]string{
		"Tables": FormatTables(tables),
	})
	if err != nil {
		return nil, err
	}

	out, err := a.runnable.Invoke(ctx, map[string]any{
		"system_message": systemPrompt,
		"question":       question,
	}, compose.WithCallbacks(NewLoggerCallback(consts.AnalystAgent)))
	if err != nil {
		return nil, fmt.Errorf("analyst run: %w", err)
	}
	logs.Debugf("[Agent] %s final answer: %d chars\n", consts.AnalystAgent, len(out.Content))

	return DecodeAnalyticalResult(out.Content)
}

// FormatTables renders the snapshot schema for a system prompt.
func FormatTables(tables []storage.TableInfo) string {
	if len(tables) == 0 {
		return "(no tables loaded)"
	}
	var b strings.Builder
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Type
		}
		fmt.Fprintf(&b, "- %s (%d rows): %s\n", t.Name, t.Rows, strings.Join(cols, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

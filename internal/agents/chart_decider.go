package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/itzana/itzanago/consts"
	"github.com/itzana/itzanago/internal/utils"
	"github.com/itzana/itzanago/models"
)

// ChartDecider picks a chart type and axes for a dataset.
type ChartDecider struct {
	runnable     compose.Runnable[map[string]any, *schema.Message]
	systemPrompt string
}

func NewChartDecider(ctx context.Context, cm model.BaseChatModel, chartTypes []string) (*ChartDecider, error) {
	systemPrompt, err := utils.LoadPromptWithContext(consts.ChartDeciderAgent, map[string]string{
		"ChartTypes": strings.Join(chartTypes, ", "),
	})
	if err != nil {
		return nil, err
	}

	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage("{system_message}"),
		schema.UserMessage("{payload}"),
	)
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendChatModel(cm)
	r, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chart decider chain: %w", err)
	}
	return &ChartDecider{runnable: r, systemPrompt: systemPrompt}, nil
}

// Decide sends the records and question as one string-encoded payload.
func (d *ChartDecider) Decide(ctx context.Context, records []models.Record, question string) (*models.ChartSpec, error) {
	payload, err := DecisionPayload(records, question)
	if err != nil {
		return nil, err
	}
	out, err := d.runnable.Invoke(ctx, map[string]any{
		"system_message": d.systemPrompt,
		"payload":        payload,
	}, compose.WithCallbacks(NewLoggerCallback(consts.ChartDeciderAgent)))
	if err != nil {
		return nil, fmt.Errorf("chart decider run: %w", err)
	}
	return DecodeChartSpec(out.Content)
}

// DecisionPayload encodes records as a JSON string nested in the
// {"data_json", "userQuery"} envelope.
func DecisionPayload(records []models.Record, question string) (string, error) {
	if records == nil {
		records = []models.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode chart data: %w", err)
	}
	body, err := json.Marshal(models.ChartDecisionInput{DataJSON: string(data), UserQuery: question})
	if err != nil {
		return "", fmt.Errorf("encode chart payload: %w", err)
	}
	return string(body), nil
}

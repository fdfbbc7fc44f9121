package agents

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/injoyai/logs"
)

// NewLoggerCallback logs model and tool activity for one agent run.
func NewLoggerCallback(agentName string) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			if info == nil {
				return ctx
			}
			if in := tool.ConvCallbackInput(input); in != nil && info.Component == components.ComponentOfTool {
				logs.Debugf("[Agent] %s -> tool %s %s\n", agentName, info.Name, in.ArgumentsInJSON)
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if info == nil {
				return ctx
			}
			switch info.Component {
			case components.ComponentOfChatModel:
				if out := ecmodel.ConvCallbackOutput(output); out != nil && out.Message != nil {
					msg := out.Message
					logs.Debugf("[Agent] %s model replied: %d chars, %d tool calls\n", agentName, len(msg.Content), len(msg.ToolCalls))
				}
			case components.ComponentOfTool:
				if out := tool.ConvCallbackOutput(output); out != nil {
					logs.Debugf("[Agent] %s <- tool %s: %d bytes\n", agentName, info.Name, len(out.Response))
				}
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			name := ""
			if info != nil {
				name = info.Name
			}
			logs.Errf("[Agent] %s %s failed: %v\n", agentName, name, err)
			return ctx
		}).
		Build()
}

package debug

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/config"
)

// devops listens here unless told otherwise
const defaultDevServerPort = "52538"

// EinoDebugger starts the eino devops server so the analyst and chart
// chains can be inspected from the visual debugger.
type EinoDebugger struct {
	config *config.Config
}

func NewEinoDebugger(cfg *config.Config) *EinoDebugger {
	return &EinoDebugger{config: cfg}
}

func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	logs.Infof("[EinoDebug] Initializing Eino visual debug plugin on port %d\n", d.config.EinoDebugPort)
	var err error
	if port := d.ServerPort(); port != "" {
		err = devops.Init(ctx, devops.WithDevServerPort(port))
	} else {
		err = devops.Init(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	logs.Infof("[EinoDebug] Debug server at %s\n", d.GetDebugURL())
	return nil
}

// ServerPort is the port handed to the devops server, empty when the
// server should keep its own default.
func (d *EinoDebugger) ServerPort() string {
	if d.config == nil || d.config.EinoDebugPort <= 0 {
		return ""
	}
	return strconv.Itoa(d.config.EinoDebugPort)
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config != nil && d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	port := d.ServerPort()
	if port == "" {
		port = defaultDevServerPort
	}
	return "http://localhost:" + port
}

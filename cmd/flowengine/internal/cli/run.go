package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowcore/flowengine/catalog"
	"github.com/flowcore/flowengine/device/mockdriver"
	"github.com/flowcore/flowengine/engine"
	"github.com/flowcore/flowengine/engine/emit"
	"github.com/flowcore/flowengine/generation"
	"github.com/flowcore/flowengine/generation/anthropic"
)

type runOptions struct {
	catalogDir string
	flowPaths  []string
	eventsPath string
	jsonLog    bool
	runID      string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Activate flows and feed them inbound events from stdin or --events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlows(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogDir, "catalog", "", "directory containing devices.json and friends (required)")
	cmd.Flags().StringArrayVar(&opts.flowPaths, "flow", nil, "path to a flow JSON document; may be repeated")
	cmd.Flags().StringVar(&opts.eventsPath, "events", "", "newline-delimited JSON event file; defaults to stdin")
	cmd.Flags().BoolVar(&opts.jsonLog, "json-log", false, "emit structured logs as JSONL instead of text")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "run identifier attached to emitted events; defaults to a generated uuid")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

// flowDocMeta peeks a flow document's own priority tier, which engine.Flow
// itself does not carry (priority belongs to ActivateFlow, not the graph).
type flowDocMeta struct {
	Priority int `json:"priority"`
}

// inboundEvent is the newline-delimited JSON shape of one fed-in event.
type inboundEvent struct {
	Type      string  `json:"type"`
	Content   string  `json:"content,omitempty"`
	Sender    string  `json:"sender,omitempty"`
	IP        string  `json:"ip,omitempty"`
	ChildID   string  `json:"childId,omitempty"`
	State     string  `json:"state,omitempty"`
	StateType string  `json:"stateType,omitempty"`
	NewValue  float64 `json:"newValue,omitempty"`
	ButtonID  string  `json:"buttonId,omitempty"`
	FlowID    string  `json:"flowId,omitempty"`
}

func runFlows(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cat, err := catalog.Load(opts.catalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	emitter := emit.NewLogEmitter(cmd.OutOrStdout(), opts.jsonLog)

	var generator generation.Generator
	if cat.Settings.GenerationModel != "" {
		switch cat.Settings.GenerationProvider {
		case "anthropic", "":
			generator = anthropic.New(os.Getenv("ANTHROPIC_API_KEY"), cat.Settings.GenerationModel)
		}
	}

	runID := opts.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	eng := engine.New(ctx,
		engine.WithDriver(mockdriver.New()),
		engine.WithResolver(cat.Resolver()),
		engine.WithGenerator(generator),
		engine.WithPublisher(&logPublisher{out: cmd.OutOrStdout()}),
		engine.WithEmitter(emitter),
		engine.WithRunID(runID),
	)

	for _, path := range opts.flowPaths {
		blob, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read flow %s: %w", path, err)
		}
		flow, err := engine.DecodeFlow(blob)
		if err != nil {
			return fmt.Errorf("decode flow %s: %w", path, err)
		}
		var meta flowDocMeta
		_ = json.Unmarshal(blob, &meta)
		if err := eng.ActivateFlow(ctx, flow, meta.Priority); err != nil {
			return fmt.Errorf("activate flow %s: %w", path, err)
		}
	}

	var source io.Reader = os.Stdin
	if opts.eventsPath != "" {
		f, err := os.Open(opts.eventsPath)
		if err != nil {
			return fmt.Errorf("open events file: %w", err)
		}
		defer f.Close()
		source = f
	}

	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev inboundEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping malformed event: %v\n", err)
			continue
		}
		data := engine.EventData{
			Content:   ev.Content,
			Sender:    ev.Sender,
			IP:        ev.IP,
			ChildID:   ev.ChildID,
			State:     ev.State,
			StateType: ev.StateType,
			NewValue:  ev.NewValue,
			ButtonID:  ev.ButtonID,
			FlowID:    ev.FlowID,
		}
		if err := eng.HandleEvent(ctx, ev.Type, data); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "handle event: %v\n", err)
		}
	}
	return scanner.Err()
}

// logPublisher prints outbound envelopes as JSON lines, standing in for the
// application's real broadcast.Hub when running the harness standalone.
type logPublisher struct {
	out io.Writer
}

func (p *logPublisher) Publish(_ context.Context, env engine.Envelope) error {
	enc := json.NewEncoder(p.out)
	return enc.Encode(struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload,omitempty"`
	}{Type: env.Type, Payload: env.Payload})
}

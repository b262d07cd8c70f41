package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samvad-hq/analytics-console/internal/config"
	"github.com/samvad-hq/analytics-console/pkg/api"
	"gopkg.in/yaml.v3"
)

// Renderer writes command results in the configured output format.
type Renderer struct {
	format string
	w      io.Writer
}

// NewRenderer returns a renderer for format, defaulting to text on stdout.
func NewRenderer(format string, w io.Writer) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = config.OutputText
	}
	return &Renderer{format: format, w: w}
}

// Chat renders a chat reply.
func (r *Renderer) Chat(resp *api.ChatResponse) error {
	if r.format != config.OutputText {
		return r.structured(resp)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(resp.Message))
	b.WriteString("\n")
	writeList(&b, "Insights", resp.Insights)
	writeList(&b, "Follow-ups", resp.FollowUps)
	if resp.HasChart() {
		b.WriteString("\n(chart attached, rerun with --output json to inspect it)\n")
	}
	fmt.Fprintf(&b, "\nsession: %s\n", resp.SessionID)
	_, err := io.WriteString(r.w, b.String())
	return err
}

// Health renders a health probe result.
func (r *Renderer) Health(resp *api.HealthResponse) error {
	if r.format != config.OutputText {
		return r.structured(resp)
	}

	cube := "disconnected"
	if resp.CubeJSConnected {
		cube = "connected"
	}
	line := fmt.Sprintf("status: %s  cubejs: %s", resp.Status, cube)
	if resp.Version != "" {
		line += "  version: " + resp.Version
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// Agents renders the agent registry as a table.
func (r *Renderer) Agents(resp *api.AgentListResponse) error {
	if r.format != config.OutputText {
		return r.structured(resp)
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tPROVIDER\tMEMORY\tTOOLS\tDESCRIPTION")
	for _, a := range resp.Agents {
		provider := "-"
		if a.Provider != nil && *a.Provider != "" {
			provider = *a.Provider
		}
		memory := "no"
		if a.MemoryEnabled {
			memory = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", a.Name, a.Status, provider, memory, len(a.Tools), a.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, "%d agents\n", resp.TotalCount)
	return err
}

// SessionDeleted confirms a deletion.
func (r *Renderer) SessionDeleted(id string) error {
	if r.format != config.OutputText {
		return r.structured(map[string]any{"session_id": id, "deleted": true})
	}
	_, err := fmt.Fprintf(r.w, "session %s deleted\n", id)
	return err
}

// CurrentSession reports the remembered session.
func (r *Renderer) CurrentSession(id string, ok bool) error {
	if r.format != config.OutputText {
		out := map[string]any{"session_id": nil}
		if ok {
			out["session_id"] = id
		}
		return r.structured(out)
	}
	if !ok {
		_, err := fmt.Fprintln(r.w, "no active session")
		return err
	}
	_, err := fmt.Fprintln(r.w, id)
	return err
}

// structured writes v as JSON or YAML. YAML goes through a JSON round trip so
// field names and opaque payloads match the wire format.
func (r *Renderer) structured(v any) error {
	switch r.format {
	case config.OutputJSON:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json output: %w", err)
		}
		_, err = fmt.Fprintf(r.w, "%s\n", raw)
		return err
	case config.OutputYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml output: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("encode yaml output: %w", err)
		}
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml output: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", r.format)
	}
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

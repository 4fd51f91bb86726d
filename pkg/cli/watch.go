package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	url        string
	jsonOutput bool
	timeout    time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream server events from a running mock server",
	Long: `Connect to a running mock server's WebSocket endpoint and print every
server event as it arrives: store updates, simulation changes, timeline
appends, and reseeds. Useful for observing mock traffic from a terminal
without an inspector UI.`,
	Example: `  # Watch the default local server
  oasmock watch

  # Watch a remote server, machine-readable
  oasmock watch --url ws://mock.internal:4280/__ws --json`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dialer := websocket.Dialer{HandshakeTimeout: watchFlags.timeout}

	fmt.Fprintf(os.Stderr, "Connecting to %s...\n", watchFlags.url)
	conn, resp, err := dialer.Dial(watchFlags.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: %v (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Fprintln(os.Stderr, "Connection closed")
				return nil
			}
			return fmt.Errorf("read error: %v", err)
		}

		if watchFlags.jsonOutput {
			fmt.Println(string(data))
			continue
		}

		var event struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: unparseable event: %v\n", err)
			continue
		}
		printEvent(event.Type, event.Data)
	}
}

func printEvent(eventType string, data map[string]any) {
	ts := time.Now().Format("15:04:05")
	if specID, ok := data["specId"].(string); ok {
		fmt.Printf("%s [%s] %s %s\n", ts, specID, eventType, summarize(data))
		return
	}
	fmt.Printf("%s %s %s\n", ts, eventType, summarize(data))
}

// summarize renders a one-line data digest, skipping bulky payload fields.
func summarize(data map[string]any) string {
	out := ""
	for _, key := range []string{"schema", "action", "count", "path", "status", "success", "serverVersion"} {
		if v, ok := data[key]; ok {
			out += fmt.Sprintf("%s=%v ", key, v)
		}
	}
	return out
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.url, "url", "ws://localhost:4280/__ws", "WebSocket URL of the running server")
	watchCmd.Flags().BoolVar(&watchFlags.jsonOutput, "json", false, "Print raw JSON events")
	watchCmd.Flags().DurationVarP(&watchFlags.timeout, "timeout", "t", 30*time.Second, "Connection timeout")
	rootCmd.AddCommand(watchCmd)
}
